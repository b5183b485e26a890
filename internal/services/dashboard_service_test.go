package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"co2dash/internal/dataprocessing"
	"co2dash/internal/shared/testutil"
	"co2dash/pkg/contracts/domain"
)

type stubProvider struct {
	ds  *Dataset
	err error
}

func (p *stubProvider) Dataset(context.Context) (*Dataset, error) {
	return p.ds, p.err
}

func loadFixture(t *testing.T, content string) *Dataset {
	t.Helper()
	path := testutil.WriteFixture(t, "emissions.csv", content)
	store := NewDatasetStore(StoreConfig{EmissionsFile: path}, nil, nil)
	ds, err := store.Dataset(context.Background())
	require.NoError(t, err)
	return ds
}

func newTestDashboard(t *testing.T, ds *Dataset, opts DashboardOptions) (*DashboardService, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return NewDashboardService(&stubProvider{ds: ds}, opts, logger, nil, nil), logs
}

func TestDashboardService_YearMap(t *testing.T) {
	svc, _ := newTestDashboard(t, loadFixture(t, testutil.SingleMetricCSV), DashboardOptions{})
	ctx := context.Background()

	result, err := svc.YearMap(ctx, 0, "")
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	want := &domain.YearView{
		Year:   2020,
		Metric: domain.MetricCO2,
		Title:  "CO₂ emissions by country in 2020",
		WithData: []domain.CountryValue{
			{Code: "CHL", Country: "Chile", Value: domain.Some(100)},
			{Code: "USA", Country: "United States", Value: domain.Some(4713.5)},
			{Code: "CHN", Country: "China", Value: domain.Some(10956.2)},
		},
		WithoutData: []domain.CountryValue{},
	}
	if diff := cmp.Diff(want, result.View); diff != "" {
		t.Errorf("YearMap(latest) mismatch (-want +got):\n%s", diff)
	}

	result, err = svc.YearMap(ctx, 2019, domain.MetricCO2)
	require.NoError(t, err)
	require.Len(t, result.View.WithoutData, 1)
	assert.Equal(t, "CHN", result.View.WithoutData[0].Code)
	assert.Len(t, result.View.WithData, 2)
}

func TestDashboardService_RejectsControls(t *testing.T) {
	svc, _ := newTestDashboard(t, loadFixture(t, testutil.SingleMetricCSV), DashboardOptions{})
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "year before dataset",
			call: func() error {
				_, err := svc.YearMap(ctx, 1990, domain.MetricCO2)
				return err
			},
			wantErr: ErrYearOutOfRange,
		},
		{
			name: "metric not loaded",
			call: func() error {
				_, err := svc.YearMap(ctx, 2020, domain.MetricCO2PerCapita)
				return err
			},
			wantErr: ErrMetricUnavailable,
		},
		{
			name: "unknown metric",
			call: func() error {
				_, err := svc.Ranking(ctx, 2020, "methane", 5, nil)
				return err
			},
			wantErr: ErrMetricUnavailable,
		},
		{
			name: "top n too large",
			call: func() error {
				_, err := svc.Ranking(ctx, 2020, domain.MetricCO2, 51, nil)
				return err
			},
			wantErr: ErrInvalidTopN,
		},
		{
			name: "unknown country",
			call: func() error {
				_, err := svc.Series(ctx, []string{"CHL", "ZZZ"}, domain.MetricCO2, 0)
				return err
			},
			wantErr: ErrUnknownCountry,
		},
		{
			name: "malformed country",
			call: func() error {
				_, err := svc.Snapshot(ctx, Controls{Countries: []string{"OWID_WRL"}})
				return err
			},
			wantErr: ErrUnknownCountry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestDashboardService_DatasetFailure(t *testing.T) {
	svc := NewDashboardService(&stubProvider{err: ErrDatasetNotConfigured}, DashboardOptions{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Bounds(ctx)
	assert.ErrorIs(t, err, ErrDatasetNotConfigured)
	_, err = svc.Countries(ctx)
	assert.ErrorIs(t, err, ErrDatasetNotConfigured)
	_, err = svc.YearMap(ctx, 0, "")
	assert.ErrorIs(t, err, ErrDatasetNotConfigured)
	_, err = svc.Snapshot(ctx, Controls{})
	assert.ErrorIs(t, err, ErrDatasetNotConfigured)
}

func TestDashboardService_Ranking(t *testing.T) {
	svc, _ := newTestDashboard(t, loadFixture(t, testutil.SingleMetricCSV), DashboardOptions{})
	ctx := context.Background()

	result, err := svc.Ranking(ctx, 2020, domain.MetricCO2, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.RankEntry{
		{Country: "China", Code: "CHN", Value: 10956.2},
		{Country: "United States", Code: "USA", Value: 4713.5},
	}, result.Entries)
	assert.Equal(t, "Top 2 emitters in 2020", result.Title)
	assert.Empty(t, result.Warnings)

	result, err = svc.Ranking(ctx, 2020, domain.MetricCO2, 0, []string{"chl"})
	require.NoError(t, err)
	assert.Equal(t, []domain.RankEntry{{Country: "Chile", Code: "CHL", Value: 100}}, result.Entries)
}

func TestDashboardService_RankingWarning(t *testing.T) {
	svc, logs := newTestDashboard(t, loadFixture(t, testutil.SingleMetricCSV), DashboardOptions{})

	result, err := svc.Ranking(context.Background(), 2019, domain.MetricCO2, 5, []string{"CHN"})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, domain.WarningNoMetricValues, result.Warnings[0].Kind)
	assert.Equal(t, dataprocessing.ChartRanking, result.Warnings[0].Chart)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "no co2 values for the selected countries in 2019")
}

func TestDashboardService_EmptyYearInsideBounds(t *testing.T) {
	table := &domain.EmissionTable{
		Metrics: []domain.Metric{domain.MetricCO2},
		Records: []domain.EmissionRecord{
			{Country: "United Kingdom", Code: "GBR", Year: 1750, CO2: domain.Some(9.35)},
			{Country: "United Kingdom", Code: "GBR", Year: 1752, CO2: domain.Some(9.38)},
		},
	}
	ds, err := NewDataset(table, dataprocessing.MasterFromRecords(table.Records))
	require.NoError(t, err)
	svc, _ := newTestDashboard(t, ds, DashboardOptions{})

	snap, err := svc.Snapshot(context.Background(), Controls{Year: 1751})
	require.NoError(t, err)

	assert.Empty(t, snap.Map.View.WithData)
	assert.Equal(t, []string{"GBR"}, snap.Map.View.Codes())
	assert.Empty(t, snap.Ranking.Entries)
	require.Len(t, snap.Series.Series, 1)
	assert.Len(t, snap.Series.Series[0].Points, 2)

	kinds := make([]string, 0, len(snap.Warnings))
	for _, w := range snap.Warnings {
		kinds = append(kinds, w.Chart+":"+string(w.Kind))
	}
	assert.Equal(t, []string{"map:empty_year", "ranking:empty_year"}, kinds)
}

func TestDashboardService_Series(t *testing.T) {
	svc, _ := newTestDashboard(t, loadFixture(t, testutil.SingleMetricCSV), DashboardOptions{})

	result, err := svc.Series(context.Background(), []string{"usa", "CHN"}, "", 2019)
	require.NoError(t, err)
	assert.Equal(t, 2019, result.MarkerYear)
	assert.Empty(t, result.Warnings)

	want := []domain.CountrySeries{
		{Code: "USA", Country: "United States", Points: []domain.SeriesPoint{{Year: 2019, Value: 5255.8}, {Year: 2020, Value: 4713.5}}},
		{Code: "CHN", Country: "China", Points: []domain.SeriesPoint{{Year: 2020, Value: 10956.2}}},
	}
	if diff := cmp.Diff(want, result.Series); diff != "" {
		t.Errorf("Series mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboardService_Snapshot(t *testing.T) {
	svc, _ := newTestDashboard(t, loadFixture(t, testutil.FullDatasetCSV), DashboardOptions{DefaultMetric: domain.MetricCO2PerCapita, DefaultTopN: 1})

	snap, err := svc.Snapshot(context.Background(), Controls{})
	require.NoError(t, err)

	assert.Equal(t, Controls{Year: 2021, Metric: domain.MetricCO2PerCapita, TopN: 1, Countries: []string{}}, snap.Controls)
	assert.Equal(t, domain.YearBounds{Min: 2020, Max: 2021}, snap.Bounds)
	assert.Equal(t, "CO₂ emissions per capita by country in 2021", snap.Map.View.Title)

	// Chile is the only country in 2021 and its cells are empty
	assert.Empty(t, snap.Map.View.WithData)
	assert.Empty(t, snap.Ranking.Entries)
	require.Len(t, snap.Warnings, 2)
	assert.Equal(t, domain.WarningNoMetricValues, snap.Warnings[0].Kind)
	assert.Equal(t, dataprocessing.ChartMap, snap.Warnings[0].Chart)
	assert.Equal(t, dataprocessing.ChartRanking, snap.Warnings[1].Chart)

	// the series chart is unaffected by the other charts' warnings
	require.Len(t, snap.Series.Series, 2)
	assert.Equal(t, []domain.SeriesPoint{{Year: 2020, Value: 5.2}}, snap.Series.Series[0].Points)
}

func TestDashboardService_StrictPolicy(t *testing.T) {
	svc, _ := newTestDashboard(t, loadFixture(t, testutil.SingleMetricCSV), DashboardOptions{Policy: dataprocessing.AggregateStrict})
	ctx := context.Background()

	_, err := svc.YearMap(ctx, 2020, domain.MetricCO2)
	var dup *dataprocessing.DuplicateCodeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "CHL", dup.Code)

	_, err = svc.Ranking(ctx, 2020, domain.MetricCO2, 3, nil)
	assert.True(t, errors.As(err, &dup))

	result, err := svc.YearMap(ctx, 2019, domain.MetricCO2)
	require.NoError(t, err)
	assert.Len(t, result.View.WithData, 2)
}

func TestDashboardService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ds := loadFixture(t, testutil.SingleMetricCSV)
	svc := NewDashboardService(&stubProvider{ds: ds}, DashboardOptions{}, nil, tp.Tracer("test"), nil)

	_, err := svc.YearMap(context.Background(), 0, "")
	require.NoError(t, err)
	_, err = svc.YearMap(context.Background(), 1800, "")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "dashboard.year_map", spans[0].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}

func TestControls_Merge(t *testing.T) {
	base := Controls{Year: 2000, Metric: domain.MetricCO2, Countries: []string{"CHL"}, TopN: 5}

	assert.Equal(t, base, base.Merge(Controls{}))
	assert.Equal(t,
		Controls{Year: 2010, Metric: domain.MetricCO2, Countries: []string{"CHL"}, TopN: 5},
		base.Merge(Controls{Year: 2010}))
	assert.Equal(t,
		Controls{Year: 2000, Metric: domain.MetricCO2PerCapita, Countries: []string{}, TopN: 20},
		base.Merge(Controls{Metric: domain.MetricCO2PerCapita, Countries: []string{}, TopN: 20}))
}
