package models

import (
	"fmt"
	"time"
)

const (
	BillOpen = 0
	BillPaid = 1
)

type Bill struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	TableID           uint        `gorm:"not null;index" json:"table_id"`
	Table             DiningTable `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	CustomerID        *uint       `gorm:"index" json:"customer_id,omitempty"`
	Customer          *Customer   `gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"customer,omitempty"`
	GuestCustomerCode string      `gorm:"type:varchar(50)" json:"guest_customer_code,omitempty"`
	AccountUserName   string      `gorm:"type:varchar(100);index" json:"account_user_name"`
	Status            int         `gorm:"not null;default:0;index" json:"status"`
	SubTotal          float64     `gorm:"type:decimal(14,2);not null;default:0" json:"sub_total"`
	DiscountPercent   float64     `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	TotalAmount       float64     `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	DateCheckIn       time.Time   `gorm:"not null" json:"date_check_in"`
	DateCheckOut      *time.Time  `gorm:"index" json:"date_check_out,omitempty"`
	BillInfos         []BillInfo  `gorm:"foreignKey:BillID" json:"items"`
}

// InvoiceNumber -> "000042"
func (b *Bill) InvoiceNumber() string {
	return fmt.Sprintf("%06d", b.ID)
}

type BillInfo struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	BillID    uint    `gorm:"not null;index" json:"bill_id"`
	Bill      Bill    `gorm:"foreignKey:BillID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	DrinkID   uint    `gorm:"not null;index" json:"drink_id"`
	Drink     Drink   `gorm:"foreignKey:DrinkID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	DrinkType string  `gorm:"type:varchar(50);not null" json:"drink_type"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Price     float64 `gorm:"type:decimal(12,2);not null" json:"price"`
}
