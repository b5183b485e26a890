package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"co2dash/internal/config"
	"co2dash/internal/dataprocessing"
	"co2dash/internal/infrastructure"
	"co2dash/pkg/contracts/domain"
)

// Controls are the interactive selections of a dashboard session.
// Zero values select the defaults: the latest year, the configured metric,
// every country and the configured top n.
type Controls struct {
	Year      int           `json:"year,omitempty" validate:"omitempty,gte=0"`
	Metric    domain.Metric `json:"metric,omitempty" validate:"omitempty,oneof=co2 co2_per_capita"`
	Countries []string      `json:"countries,omitempty" validate:"omitempty,dive,iso3"`
	TopN      int           `json:"top_n,omitempty" validate:"omitempty,min=1,max=50"`
}

// Merge overlays the non-zero fields of update onto c, so a zero year keeps
// the current one. Callers that need to return to the latest year clear
// Year on the result. A non-nil empty country list clears the selection.
func (c Controls) Merge(update Controls) Controls {
	if update.Year != 0 {
		c.Year = update.Year
	}
	if update.Metric != "" {
		c.Metric = update.Metric
	}
	if update.Countries != nil {
		c.Countries = update.Countries
	}
	if update.TopN != 0 {
		c.TopN = update.TopN
	}
	return c
}

// DashboardOptions are the defaults applied to unset controls
type DashboardOptions struct {
	Policy        dataprocessing.AggregationPolicy
	DefaultMetric domain.Metric
	DefaultTopN   int
}

// MapResult is the choropleth partition of one year
type MapResult struct {
	View     *domain.YearView `json:"view"`
	Warnings []domain.Warning `json:"warnings"`
}

// RankingResult is the top-n bar chart of one year
type RankingResult struct {
	Year     int                `json:"year"`
	Metric   domain.Metric      `json:"metric"`
	Title    string             `json:"title"`
	Entries  []domain.RankEntry `json:"entries"`
	Warnings []domain.Warning   `json:"warnings"`
}

// SeriesResult is the per-country line chart with a marker at the selected year
type SeriesResult struct {
	Metric     domain.Metric          `json:"metric"`
	MarkerYear int                    `json:"marker_year"`
	Title      string                 `json:"title"`
	Series     []domain.CountrySeries `json:"series"`
	Warnings   []domain.Warning       `json:"warnings"`
}

// Snapshot is every chart of the dashboard for one set of controls
type Snapshot struct {
	Controls Controls          `json:"controls"`
	Bounds   domain.YearBounds `json:"bounds"`
	Map      *MapResult        `json:"map"`
	Ranking  *RankingResult    `json:"ranking"`
	Series   *SeriesResult     `json:"series"`
	Warnings []domain.Warning  `json:"warnings"`
}

// DashboardService derives chart views from the dataset on every call
type DashboardService struct {
	store   DatasetProvider
	opts    DashboardOptions
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.DashboardMetrics
}

// NewDashboardService creates a dashboard service. A nil tracer disables spans.
func NewDashboardService(store DatasetProvider, opts DashboardOptions, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.DashboardMetrics) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	if opts.Policy == "" {
		opts.Policy = dataprocessing.AggregateSum
	}
	if opts.DefaultMetric == "" {
		opts.DefaultMetric = domain.MetricCO2
	}
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = config.DefaultTopN
	}
	return &DashboardService{
		store:   store,
		opts:    opts,
		logger:  infrastructure.WithComponent(logger, "dashboard_service"),
		tracer:  tracer,
		metrics: metrics,
	}
}

// Bounds returns the year range of the dataset
func (s *DashboardService) Bounds(ctx context.Context) (domain.YearBounds, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return domain.YearBounds{}, err
	}
	return ds.Bounds, nil
}

// Countries returns the master rows in master order
func (s *DashboardService) Countries(ctx context.Context) ([]domain.MasterRow, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Master.Rows(), nil
}

// Master returns the country master
func (s *DashboardService) Master(ctx context.Context) (*domain.CountryMaster, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Master, nil
}

// Resolve fills unset controls with defaults and validates them against the dataset
func (s *DashboardService) Resolve(ctx context.Context, c Controls) (Controls, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return Controls{}, err
	}
	return s.resolve(ds, c)
}

func (s *DashboardService) resolve(ds *Dataset, c Controls) (Controls, error) {
	if c.Year == 0 {
		c.Year = ds.Bounds.Max
	}
	if !ds.Bounds.Contains(c.Year) {
		return c, fmt.Errorf("%w: %d not in [%d, %d]", ErrYearOutOfRange, c.Year, ds.Bounds.Min, ds.Bounds.Max)
	}

	if c.Metric == "" {
		c.Metric = s.opts.DefaultMetric
	}
	metric, err := domain.ParseMetric(string(c.Metric))
	if err != nil {
		return c, fmt.Errorf("%w: %s", ErrMetricUnavailable, c.Metric)
	}
	if !ds.Table.HasMetric(metric) {
		return c, fmt.Errorf("%w: %s", ErrMetricUnavailable, metric)
	}
	c.Metric = metric

	if c.TopN == 0 {
		c.TopN = s.opts.DefaultTopN
	}
	if c.TopN < 1 || c.TopN > config.MaxTopN {
		return c, fmt.Errorf("%w: %d", ErrInvalidTopN, c.TopN)
	}

	codes := make([]string, 0, len(c.Countries))
	for _, raw := range c.Countries {
		code, ok := dataprocessing.NormalizeCode(raw)
		if !ok || !ds.HasCode(code) {
			return c, fmt.Errorf("%w: %q", ErrUnknownCountry, raw)
		}
		codes = append(codes, code)
	}
	c.Countries = codes

	return c, nil
}

// YearMap partitions the master into countries with and without data in year.
// Year zero selects the latest year.
func (s *DashboardService) YearMap(ctx context.Context, year int, metric domain.Metric) (*MapResult, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.year_map")
	defer span.End()
	start := time.Now()

	result, err := s.yearMap(ctx, Controls{Year: year, Metric: metric})
	s.finish(ctx, span, "map", start, result.warnings(), err)
	return result, err
}

func (s *DashboardService) yearMap(ctx context.Context, c Controls) (*MapResult, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	if c, err = s.resolve(ds, c); err != nil {
		return nil, err
	}
	return s.computeMap(ctx, ds, c)
}

func (s *DashboardService) computeMap(ctx context.Context, ds *Dataset, c Controls) (*MapResult, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("year", c.Year),
		attribute.String("metric", string(c.Metric)))

	view, err := dataprocessing.MakeYearView(ds.Table.Records, ds.Master, c.Year, c.Metric, s.opts.Policy)
	if err != nil {
		return nil, err
	}

	if len(view.Unmatched) > 0 {
		s.logger.DebugContext(ctx, "records without master row",
			slog.Int("year", c.Year),
			slog.String("codes", strings.Join(view.Unmatched, ",")))
	}

	result := &MapResult{View: view, Warnings: make([]domain.Warning, 0)}
	if w := dataprocessing.CheckYear(ds.Table.Records, c.Year, dataprocessing.ChartMap); w != nil {
		result.Warnings = append(result.Warnings, *w)
	} else if w := dataprocessing.CheckMetric(dataprocessing.FilterYear(ds.Table.Records, c.Year), c.Metric, c.Year, dataprocessing.ChartMap); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result, nil
}

// Ranking returns the n countries with the largest values in year,
// restricted to countries when the list is not empty.
func (s *DashboardService) Ranking(ctx context.Context, year int, metric domain.Metric, n int, countries []string) (*RankingResult, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.ranking")
	defer span.End()
	start := time.Now()

	result, err := s.ranking(ctx, Controls{Year: year, Metric: metric, TopN: n, Countries: countries})
	s.finish(ctx, span, "ranking", start, result.warnings(), err)
	return result, err
}

func (s *DashboardService) ranking(ctx context.Context, c Controls) (*RankingResult, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	if c, err = s.resolve(ds, c); err != nil {
		return nil, err
	}
	return s.computeRanking(ctx, ds, c)
}

func (s *DashboardService) computeRanking(ctx context.Context, ds *Dataset, c Controls) (*RankingResult, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("year", c.Year),
		attribute.Int("top_n", c.TopN),
		attribute.Int("countries", len(c.Countries)))

	selected := dataprocessing.FilterCountries(dataprocessing.FilterYear(ds.Table.Records, c.Year), c.Countries)
	aggregated, err := dataprocessing.Aggregate(selected, s.opts.Policy)
	if err != nil {
		return nil, err
	}

	result := &RankingResult{
		Year:     c.Year,
		Metric:   c.Metric,
		Title:    fmt.Sprintf("Top %d emitters in %d", c.TopN, c.Year),
		Entries:  dataprocessing.RankTopN(aggregated, c.Metric, c.TopN),
		Warnings: make([]domain.Warning, 0),
	}
	if w := dataprocessing.CheckYear(ds.Table.Records, c.Year, dataprocessing.ChartRanking); w != nil {
		result.Warnings = append(result.Warnings, *w)
	} else if w := dataprocessing.CheckMetric(selected, c.Metric, c.Year, dataprocessing.ChartRanking); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result, nil
}

// Series returns one time series per selected country. markerYear zero
// places the marker on the latest year.
func (s *DashboardService) Series(ctx context.Context, countries []string, metric domain.Metric, markerYear int) (*SeriesResult, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.series")
	defer span.End()
	start := time.Now()

	result, err := s.series(ctx, Controls{Year: markerYear, Metric: metric, Countries: countries})
	s.finish(ctx, span, "series", start, result.warnings(), err)
	return result, err
}

func (s *DashboardService) series(ctx context.Context, c Controls) (*SeriesResult, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	if c, err = s.resolve(ds, c); err != nil {
		return nil, err
	}
	return s.computeSeries(ctx, ds, c), nil
}

func (s *DashboardService) computeSeries(ctx context.Context, ds *Dataset, c Controls) *SeriesResult {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("marker_year", c.Year),
		attribute.Int("countries", len(c.Countries)))

	selected := dataprocessing.FilterCountries(ds.Table.Records, c.Countries)
	result := &SeriesResult{
		Metric:     c.Metric,
		MarkerYear: c.Year,
		Title:      c.Metric.Label() + " over time",
		Series:     dataprocessing.Series(selected, c.Countries, c.Metric),
		Warnings:   make([]domain.Warning, 0),
	}
	if w := dataprocessing.CheckMetric(selected, c.Metric, 0, dataprocessing.ChartSeries); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result
}

// Snapshot computes every chart for the given controls. A warning on one
// chart does not prevent the others from being built.
func (s *DashboardService) Snapshot(ctx context.Context, controls Controls) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.snapshot")
	defer span.End()
	start := time.Now()

	snap, err := s.snapshot(ctx, controls)
	var warnings []domain.Warning
	if snap != nil {
		warnings = snap.Warnings
	}
	s.finish(ctx, span, "snapshot", start, warnings, err)
	return snap, err
}

func (s *DashboardService) snapshot(ctx context.Context, controls Controls) (*Snapshot, error) {
	ds, err := s.store.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.resolve(ds, controls)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Controls: c, Bounds: ds.Bounds, Warnings: make([]domain.Warning, 0)}
	if snap.Map, err = s.computeMap(ctx, ds, c); err != nil {
		return nil, err
	}
	if snap.Ranking, err = s.computeRanking(ctx, ds, c); err != nil {
		return nil, err
	}
	snap.Series = s.computeSeries(ctx, ds, c)

	snap.Warnings = append(snap.Warnings, snap.Map.Warnings...)
	snap.Warnings = append(snap.Warnings, snap.Ranking.Warnings...)
	snap.Warnings = append(snap.Warnings, snap.Series.Warnings...)
	return snap, nil
}

func (s *DashboardService) finish(ctx context.Context, span trace.Span, view string, start time.Time, warnings []domain.Warning, err error) {
	infrastructure.RecordView(ctx, s.metrics, view, time.Since(start), len(warnings), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "view rejected",
			slog.String("view", view),
			slog.String("error", err.Error()))
		return
	}
	span.SetAttributes(attribute.Int("warnings", len(warnings)))
	for _, w := range warnings {
		s.logger.InfoContext(ctx, w.Message,
			slog.String("view", view),
			slog.String("chart", w.Chart),
			slog.String("kind", string(w.Kind)))
	}
}

func (r *MapResult) warnings() []domain.Warning {
	if r == nil {
		return nil
	}
	return r.Warnings
}

func (r *RankingResult) warnings() []domain.Warning {
	if r == nil {
		return nil
	}
	return r.Warnings
}

func (r *SeriesResult) warnings() []domain.Warning {
	if r == nil {
		return nil
	}
	return r.Warnings
}
