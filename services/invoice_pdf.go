package services

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/cafe-pos/models"
	"github.com/yeremiapane/cafe-pos/utils"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ShopName is printed at the top of every invoice.
var ShopName = "Cafe POS"

// WriteInvoicePDF renders a printable A5 invoice.
func WriteInvoicePDF(w io.Writer, inv *Invoice) error {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, ASCIIFold(ShopName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "HOA DON THANH TOAN", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	info := [][2]string{
		{"So HD", inv.Number},
		{"Ban", inv.TableName},
		{"Khach hang", fmt.Sprintf("%s (%s)", inv.CustomerName, inv.CustomerCode)},
		{"Thu ngan", inv.Cashier},
		{"Gio vao", inv.CheckIn.Format("02/01/2006 15:04")},
		{"Gio ra", inv.CheckOut.Format("02/01/2006 15:04")},
	}
	for _, kv := range info {
		pdf.CellFormat(30, 5, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, ASCIIFold(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	widths := []float64{58, 14, 28, 28}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Mon", "SL", "Don gia", "Thanh tien"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.Items {
		name := fmt.Sprintf("%s (%s)", item.DrinkName, models.ShortType(item.DrinkType))
		pdf.CellFormat(widths[0], 6, ASCIIFold(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, utils.FormatAmount(item.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, utils.FormatAmount(item.TotalPrice), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	suffix := ASCIIFold(utils.CurrencySuffix)
	total := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, value, "", 1, "R", false, 0, "")
	}
	total("Tam tinh:", utils.FormatAmount(inv.SubTotal)+" "+suffix, false)
	if inv.DiscountPercent > 0 {
		total(fmt.Sprintf("Giam gia (%g%%):", inv.DiscountPercent), "-"+utils.FormatAmount(inv.DiscountAmount)+" "+suffix, false)
	}
	total("Tong cong:", utils.FormatAmount(inv.Total)+" "+suffix, true)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "Cam on quy khach!", "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

// ASCIIFold strips Vietnamese diacritics so text fits the PDF core fonts.
func ASCIIFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
}
