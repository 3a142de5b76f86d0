package services

import (
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/yeremiapane/cafe-pos/utils"
)

// WriteRevenueChart renders daily revenue as a PNG line chart.
func WriteRevenueChart(w io.Writer, days []DailyRevenue) error {
	xs := make([]time.Time, 0, len(days)+1)
	ys := make([]float64, 0, len(days)+1)
	maxY := 0.0
	for _, d := range days {
		xs = append(xs, d.Day)
		ys = append(ys, d.Revenue)
		if d.Revenue > maxY {
			maxY = d.Revenue
		}
	}
	// a series needs two points to draw a line
	switch len(xs) {
	case 0:
		today := time.Now()
		xs = append(xs, today.AddDate(0, 0, -1), today)
		ys = append(ys, 0, 0)
	case 1:
		xs = append(xs, xs[0].AddDate(0, 0, 1))
		ys = append(ys, 0)
	}

	top := maxY * 1.1
	if top < 1 {
		top = 1
	}

	graph := chart.Chart{
		Title:  "Revenue",
		Width:  960,
		Height: 480,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return utils.FormatAmount(f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Revenue",
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return graph.Render(chart.PNG, w)
}
