package exporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/twpayne/go-geom/encoding/geojson"

	"co2dash/pkg/contracts/domain"
)

// GeoJSONWriter encodes a year view as a FeatureCollection for choropleth rendering.
// There is one feature per master row. has_data separates the coloured layer
// from the grey no-data layer.
type GeoJSONWriter struct{}

// NewGeoJSONWriter creates a GeoJSON writer
func NewGeoJSONWriter() *GeoJSONWriter {
	return &GeoJSONWriter{}
}

// Encode writes view joined with the master geometries to w.
// Rows without geometry are emitted with a null geometry.
func (g *GeoJSONWriter) Encode(w io.Writer, view *domain.YearView, master *domain.CountryMaster) error {
	fc, err := g.FeatureCollection(view, master)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode feature collection: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// FeatureCollection builds the collection in master order
func (g *GeoJSONWriter) FeatureCollection(view *domain.YearView, master *domain.CountryMaster) (*geojson.FeatureCollection, error) {
	values := make(map[string]domain.CountryValue, len(view.WithData)+len(view.WithoutData))
	for _, cv := range view.WithData {
		values[cv.Code] = cv
	}
	for _, cv := range view.WithoutData {
		values[cv.Code] = cv
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, master.Len())}
	for _, row := range master.Rows() {
		cv, ok := values[row.Code]
		if !ok {
			return nil, fmt.Errorf("view for %d has no entry for master code %s", view.Year, row.Code)
		}

		value, err := json.Marshal(cv.Value)
		if err != nil {
			return nil, err
		}

		feature := &geojson.Feature{
			ID:       row.Code,
			Geometry: row.Geometry,
			Properties: map[string]interface{}{
				"code":     row.Code,
				"country":  row.Country,
				"value":    json.RawMessage(value),
				"has_data": cv.Value.Valid,
			},
		}
		if row.Geometry != nil {
			feature.BBox = row.Geometry.Bounds()
		}
		fc.Features = append(fc.Features, feature)
	}
	return fc, nil
}
