package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"co2dash/internal/charts"
	"co2dash/internal/dataprocessing"
	apierrors "co2dash/internal/errors"
	"co2dash/internal/exporter"
	"co2dash/internal/infrastructure"
	mw "co2dash/internal/middleware"
	"co2dash/internal/services"
	"co2dash/pkg/contracts/domain"
)

// DashboardService is the view layer consumed by DashboardHandler
type DashboardService interface {
	Bounds(ctx context.Context) (domain.YearBounds, error)
	Countries(ctx context.Context) ([]domain.MasterRow, error)
	Master(ctx context.Context) (*domain.CountryMaster, error)
	YearMap(ctx context.Context, year int, metric domain.Metric) (*services.MapResult, error)
	Ranking(ctx context.Context, year int, metric domain.Metric, n int, countries []string) (*services.RankingResult, error)
	Series(ctx context.Context, countries []string, metric domain.Metric, markerYear int) (*services.SeriesResult, error)
}

const (
	contentTypeGeoJSON = "application/geo+json"
	contentTypeCSV     = "text/csv; charset=utf-8"
	contentTypeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePNG     = "image/png"
)

// viewQuery holds the query parameters shared by every view route
type viewQuery struct {
	Year      int      `json:"year" validate:"omitempty,gte=0"`
	Metric    string   `json:"metric" validate:"omitempty,oneof=co2 co2_per_capita"`
	Countries []string `json:"countries" validate:"omitempty,dive,iso3"`
	N         int      `json:"n" validate:"omitempty,min=1,max=50"`
}

func (q viewQuery) metric() domain.Metric {
	return domain.Metric(q.Metric)
}

// DashboardHandler serves the dashboard views as JSON, GeoJSON, PNG and file exports
type DashboardHandler struct {
	service      DashboardService
	validator    *mw.Validator
	csvBOM       bool
	workbook     *exporter.WorkbookExporter
	geojson      *exporter.GeoJSONWriter
	metrics      *infrastructure.DashboardMetrics
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler. metrics may be nil.
func NewDashboardHandler(
	service DashboardService,
	csvBOM bool,
	metrics *infrastructure.DashboardMetrics,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    mw.NewValidator(logger),
		csvBOM:       csvBOM,
		workbook:     exporter.NewWorkbookExporter(logger),
		geojson:      exporter.NewGeoJSONWriter(),
		metrics:      metrics,
		logger:       logger.With(slog.String("handler", "dashboard")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes, mounted under /api/dashboard
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/bounds", h.GetBounds)
		r.Get("/countries", h.GetCountries)
		r.Get("/map", h.GetMap)
		r.Get("/ranking", h.GetRanking)
		r.Get("/series", h.GetSeries)
	})

	r.Get("/map.geojson", h.GetMapGeoJSON)
	r.Get("/charts/ranking.png", h.GetRankingChart)
	r.Get("/charts/series.png", h.GetSeriesChart)
	r.Get("/export/{file}", h.Export)

	return r
}

// GetBounds handles GET /api/dashboard/bounds
func (h *DashboardHandler) GetBounds(w http.ResponseWriter, r *http.Request) {
	bounds, err := h.service.Bounds(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, bounds)
}

// GetCountries handles GET /api/dashboard/countries
func (h *DashboardHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Countries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	type country struct {
		Code    string `json:"code"`
		Country string `json:"country"`
	}
	out := make([]country, 0, len(rows))
	for _, row := range rows {
		out = append(out, country{Code: row.Code, Country: row.Country})
	}

	render.JSON(w, r, map[string]interface{}{
		"data":  out,
		"count": len(out),
	})
}

// GetMap handles GET /api/dashboard/map?year=&metric=
func (h *DashboardHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.YearMap(r.Context(), q.Year, q.metric())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetMapGeoJSON handles GET /api/dashboard/map.geojson?year=&metric=
func (h *DashboardHandler) GetMapGeoJSON(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.YearMap(r.Context(), q.Year, q.metric())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	master, err := h.service.Master(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.geojson.Encode(&buf, result.View, master); err != nil {
		h.fail(w, r, apierrors.ExportError("geojson", err))
		return
	}
	h.write(w, r, contentTypeGeoJSON, "", buf.Bytes())
}

// GetRanking handles GET /api/dashboard/ranking?year=&metric=&n=&countries=
func (h *DashboardHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.Ranking(r.Context(), q.Year, q.metric(), q.N, q.Countries)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetSeries handles GET /api/dashboard/series?countries=&metric=&year=
func (h *DashboardHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.Series(r.Context(), q.Countries, q.metric(), q.Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetRankingChart handles GET /api/dashboard/charts/ranking.png
func (h *DashboardHandler) GetRankingChart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.Ranking(r.Context(), q.Year, q.metric(), q.N, q.Countries)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderRanking(&buf, result.Entries, result.Title, result.Metric, charts.Options{}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, r, contentTypePNG, "", buf.Bytes())
}

// GetSeriesChart handles GET /api/dashboard/charts/series.png
func (h *DashboardHandler) GetSeriesChart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.Series(r.Context(), q.Countries, q.metric(), q.Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderSeries(&buf, result.Series, result.MarkerYear, result.Title, result.Metric, charts.Options{}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, r, contentTypePNG, "", buf.Bytes())
}

// Export handles GET /api/dashboard/export/{year}.csv and /export/{year}.xlsx.
// The CSV holds the year view, the workbook adds the ranking sheet.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	year, err := strconv.Atoi(strings.TrimSuffix(file, ext))
	if err != nil || (ext != ".csv" && ext != ".xlsx") {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("export "+file))
		return
	}

	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	if year < 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", "year must be 0 or greater"))
		return
	}

	mapResult, err := h.service.YearMap(r.Context(), year, q.metric())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view := mapResult.View
	filename := fmt.Sprintf("co2_%d_%s%s", view.Year, view.Metric, ext)

	var buf bytes.Buffer
	switch ext {
	case ".csv":
		err = exporter.EncodeCSV(&buf, exporter.WriteOptions{
			Headers:   exporter.YearViewHeaders,
			Records:   exporter.YearViewRecords(view),
			BOMPrefix: h.csvBOM,
		})
		if err != nil {
			h.fail(w, r, apierrors.ExportError("csv", err))
			return
		}
		h.write(w, r, contentTypeCSV, filename, buf.Bytes())

	case ".xlsx":
		ranking, err := h.service.Ranking(r.Context(), view.Year, view.Metric, q.N, q.Countries)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		wb := exporter.Workbook{Views: []*domain.YearView{view}, Ranking: ranking.Entries}
		if err := h.workbook.Encode(&buf, wb); err != nil {
			h.fail(w, r, apierrors.ExportError("xlsx", err))
			return
		}
		h.write(w, r, contentTypeXLSX, filename, buf.Bytes())
	}

	infrastructure.RecordExport(r.Context(), h.metrics, strings.TrimPrefix(ext, "."))
	h.logger.InfoContext(r.Context(), "export served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("file", filename),
		slog.Int("bytes", buf.Len()))
}

// parseQuery reads and validates the view parameters. On failure the
// problem response is already written.
func (h *DashboardHandler) parseQuery(w http.ResponseWriter, r *http.Request) (viewQuery, bool) {
	var q viewQuery
	var err error

	if q.Year, err = mw.QueryInt(r, "year"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	if q.N, err = mw.QueryInt(r, "n"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	q.Metric = strings.TrimSpace(r.URL.Query().Get("metric"))
	q.Countries = mw.QueryList(r, "countries")

	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	return q, true
}

func (h *DashboardHandler) write(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "response write failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.HandleError(w, r, toAPIError(err))
}

// toAPIError maps service and pipeline errors onto API errors.
// Unrecognised errors are returned unchanged.
func toAPIError(err error) error {
	var schemaErr *dataprocessing.SchemaError
	var dupErr *dataprocessing.DuplicateCodeError
	var appErr *apierrors.AppError

	switch {
	case errors.Is(err, services.ErrYearOutOfRange):
		return apierrors.ErrValidation("year", err.Error())
	case errors.Is(err, services.ErrMetricUnavailable):
		return apierrors.ErrValidation("metric", err.Error())
	case errors.Is(err, services.ErrUnknownCountry):
		return apierrors.ErrValidation("countries", err.Error())
	case errors.Is(err, services.ErrInvalidTopN):
		return apierrors.ErrValidation("n", err.Error())
	case errors.As(err, &appErr):
		// schema, parse and read failures keep their type and context
		return appErr
	case errors.Is(err, services.ErrDatasetUnavailable),
		errors.Is(err, services.ErrDatasetNotConfigured),
		errors.Is(err, services.ErrEmptyDataset),
		errors.As(err, &schemaErr):
		return apierrors.DatasetUnavailableError(err)
	case errors.As(err, &dupErr):
		return apierrors.DuplicateCodeError(err)
	case errors.Is(err, charts.ErrNoData):
		return apierrors.New(http.StatusNotFound, "NOT_FOUND", "No data to chart for the selected controls")
	}
	return err
}
