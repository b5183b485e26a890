// Package charts renders dashboard views as PNG images. Colouring of the
// choropleth is left to the front end; only the ranking bar chart and the
// time-series line chart are drawn here.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"co2dash/pkg/contracts/domain"
)

// ErrNoData is returned when there is nothing to draw
var ErrNoData = errors.New("no data to chart")

const (
	defaultHeight = 480
	barWidth      = 32
	barSpacing    = 12
)

var markerColor = drawing.ColorFromHex("d62728")

// Options controls the rendered image size. Zero values pick defaults.
type Options struct {
	Width  int
	Height int
}

func (o Options) height() int {
	if o.Height > 0 {
		return o.Height
	}
	return defaultHeight
}

// RenderRanking draws entries as a bar chart, largest first, labelled by code
func RenderRanking(w io.Writer, entries []domain.RankEntry, title string, metric domain.Metric, opts Options) error {
	if len(entries) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(entries))
	maxY := 0.0
	minY := 0.0
	for _, e := range entries {
		bars = append(bars, chart.Value{Label: e.Code, Value: e.Value})
		maxY = math.Max(maxY, e.Value)
		minY = math.Min(minY, e.Value)
	}
	if maxY <= minY {
		maxY = minY + 1
	}

	width := opts.Width
	if width <= 0 {
		width = len(entries)*(barWidth+barSpacing) + 160
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     opts.height(),
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.Style{},
		YAxis: chart.YAxis{
			Name:  metric.Label(),
			Range: &chart.ContinuousRange{Min: minY, Max: maxY * 1.05},
		},
		Bars: bars,
	}

	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render ranking chart: %w", err)
	}
	return nil
}

// RenderSeries draws one line per country and a vertical marker at markerYear.
// Series without points are skipped.
func RenderSeries(w io.Writer, series []domain.CountrySeries, markerYear int, title string, metric domain.Metric, opts Options) error {
	minX, maxX := float64(markerYear), float64(markerYear)
	minY, maxY := math.MaxFloat64, -math.MaxFloat64

	lines := make([]chart.Series, 0, len(series)+1)
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, len(s.Points))
		ys := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j], ys[j] = float64(p.Year), p.Value
			minX, maxX = math.Min(minX, xs[j]), math.Max(maxX, xs[j])
			minY, maxY = math.Min(minY, ys[j]), math.Max(maxY, ys[j])
		}
		col := chart.GetDefaultColor(i)
		lines = append(lines, chart.ContinuousSeries{
			Name:    s.Country,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    2,
			},
		})
	}
	if len(lines) == 0 {
		return ErrNoData
	}

	if maxX <= minX {
		minX, maxX = minX-1, maxX+1
	}
	if minY > 0 {
		minY = 0
	}
	if maxY <= minY {
		maxY = minY + 1
	}
	maxY *= 1.05

	lines = append(lines, chart.ContinuousSeries{
		Name:    fmt.Sprintf("%d", markerYear),
		XValues: []float64{float64(markerYear), float64(markerYear)},
		YValues: []float64{minY, maxY},
		Style: chart.Style{
			StrokeColor:     markerColor,
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5, 5},
		},
	})

	width := opts.Width
	if width <= 0 {
		width = 960
	}

	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     opts.height(),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Year",
			Range:          &chart.ContinuousRange{Min: minX, Max: maxX},
			ValueFormatter: yearFormatter,
		},
		YAxis: chart.YAxis{
			Name:  metric.Label(),
			Range: &chart.ContinuousRange{Min: minY, Max: maxY},
		},
		Series: lines,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render series chart: %w", err)
	}
	return nil
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprint(v)
}
