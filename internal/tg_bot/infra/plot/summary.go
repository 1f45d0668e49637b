// Package plot draws the device summary counters as a PNG bar chart.
package plot

import (
	"bytes"
	"fmt"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var categoryColors = map[models.SummaryCategory]drawing.Color{
	models.CategoryGreen:  drawing.ColorFromHex("2ca02c"),
	models.CategoryYellow: drawing.ColorFromHex("e6b800"),
	models.CategoryRed:    drawing.ColorFromHex("d62728"),
	models.CategoryCustom: drawing.ColorFromHex("1f77b4"),
}

// SummaryChart renders one bar per category in the fixed category order.
type SummaryChart struct {
	Width  int
	Height int
}

// NewSummaryChart creates a renderer producing width x height images.
func NewSummaryChart(width, height int) *SummaryChart {
	return &SummaryChart{Width: width, Height: height}
}

// Render returns the PNG encoding of the chart.
func (s *SummaryChart) Render(counters models.SummaryCounters) ([]byte, error) {
	bars := make([]chart.Value, 0, len(models.SummaryCategories))
	for _, category := range models.SummaryCategories {
		bars = append(bars, chart.Value{
			Label: string(category),
			Value: float64(counters[category]),
			Style: chart.Style{
				FillColor:   categoryColors[category],
				StrokeColor: categoryColors[category],
				StrokeWidth: 1,
			},
		})
	}

	// go-chart refuses a bar chart whose values are all zero
	yAxis := chart.YAxis{}
	if counters.Total() == 0 {
		yAxis.Range = &chart.ContinuousRange{Min: 0, Max: 1}
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Peak Pacer summary (%d)", counters.Total()),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      s.Width,
		Height:     s.Height,
		BarWidth:   s.Width / (2 * len(bars)),
		YAxis:      yAxis,
		Bars:       bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render summary chart: %w", err)
	}
	return buf.Bytes(), nil
}
