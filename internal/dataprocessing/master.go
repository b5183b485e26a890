package dataprocessing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"co2dash/internal/errors"
	"co2dash/pkg/contracts/domain"
)

// GeometryOptions names the feature properties that carry the code and display name
type GeometryOptions struct {
	CodeProperty string
	NameProperty string
}

// DefaultGeometryOptions matches the Natural Earth admin-0 attributes
func DefaultGeometryOptions() GeometryOptions {
	return GeometryOptions{
		CodeProperty: "ISO_A3",
		NameProperty: "NAME",
	}
}

// GeometryRow is one feature of a geometry source keyed by ISO3 code
type GeometryRow struct {
	Code     string
	Name     string
	Geometry geom.T
}

// LoadGeometry reads a GeoJSON FeatureCollection. Codes are trimmed and
// uppercased but otherwise kept as is, so placeholder codes such as "-99"
// stay in the master. Features without a code are skipped.
func (l *Loader) LoadGeometry(ctx context.Context, path string, opts GeometryOptions) ([]GeometryRow, error) {
	defaults := DefaultGeometryOptions()
	if opts.CodeProperty == "" {
		opts.CodeProperty = defaults.CodeProperty
	}
	if opts.NameProperty == "" {
		opts.NameProperty = defaults.NameProperty
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewStorageError("failed to read geometry file", err).WithContext("path", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, errors.NewParsingError("invalid GeoJSON feature collection", err).WithContext("path", path)
	}

	rows := make([]GeometryRow, 0, len(fc.Features))
	skipped := 0
	for _, feature := range fc.Features {
		code := strings.ToUpper(strings.TrimSpace(propertyString(feature.Properties, opts.CodeProperty)))
		if code == "" {
			skipped++
			continue
		}
		rows = append(rows, GeometryRow{
			Code:     code,
			Name:     propertyString(feature.Properties, opts.NameProperty),
			Geometry: feature.Geometry,
		})
	}

	l.logger.InfoContext(ctx, "geometry loaded",
		slog.String("path", path),
		slog.Int("features", len(rows)),
		slog.Int("skipped", skipped))

	return rows, nil
}

func propertyString(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// BuildCountryMaster deduplicates geometry rows by code, keeping the first
// occurrence, and indexes them by code.
func BuildCountryMaster(rows []GeometryRow) *domain.CountryMaster {
	master := make([]domain.MasterRow, 0, len(rows))
	for _, row := range rows {
		master = append(master, domain.MasterRow{
			Code:     row.Code,
			Country:  row.Name,
			Geometry: row.Geometry,
		})
	}
	return domain.NewCountryMaster(master)
}

// MasterFromRecords builds a geometry-free master with one row per code in
// first-seen order, named after the first record carrying the code.
func MasterFromRecords(records []domain.EmissionRecord) *domain.CountryMaster {
	master := make([]domain.MasterRow, 0)
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seen[r.Code]; ok {
			continue
		}
		seen[r.Code] = struct{}{}
		master = append(master, domain.MasterRow{Code: r.Code, Country: r.Country})
	}
	return domain.NewCountryMaster(master)
}
