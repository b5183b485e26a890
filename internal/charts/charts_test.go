package charts

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2dash/pkg/contracts/domain"
)

func TestRenderRanking(t *testing.T) {
	entries := []domain.RankEntry{
		{Country: "China", Code: "CHN", Value: 10956.2},
		{Country: "United States", Code: "USA", Value: 4713.5},
		{Country: "Chile", Code: "CHL", Value: 100},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderRanking(&buf, entries, "Top 3 emitters in 2020", domain.MetricCO2, Options{}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, defaultHeight, img.Bounds().Dy())
	assert.Equal(t, 3*(barWidth+barSpacing)+160, img.Bounds().Dx())
}

func TestRenderRanking_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderRanking(&buf, nil, "empty", domain.MetricCO2, Options{}), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestRenderSeries(t *testing.T) {
	series := []domain.CountrySeries{
		{Code: "USA", Country: "United States", Points: []domain.SeriesPoint{{Year: 2019, Value: 5255.8}, {Year: 2020, Value: 4713.5}}},
		{Code: "CHL", Country: "Chile", Points: []domain.SeriesPoint{{Year: 2019, Value: 85.5}, {Year: 2020, Value: 100}}},
		{Code: "ATA", Country: "Antarctica", Points: []domain.SeriesPoint{}},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderSeries(&buf, series, 2020, "CO₂ emissions (t) over time", domain.MetricCO2, Options{Width: 640, Height: 360}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())
}

func TestRenderSeries_NoPoints(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSeries(&buf, []domain.CountrySeries{{Code: "ATA", Points: nil}}, 2020, "", domain.MetricCO2, Options{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYearFormatter(t *testing.T) {
	assert.Equal(t, "1990", yearFormatter(1990.0))
	assert.Equal(t, "x", yearFormatter("x"))
}
