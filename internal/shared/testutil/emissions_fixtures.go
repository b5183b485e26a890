package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SingleMetricCSV is a small single-metric emissions file. It carries a
// lowercase code, a duplicated Chile row in 2020 and two rows with
// aggregate codes that do not pass ISO3 filtering.
const SingleMetricCSV = `Entity,Code,Year,Annual CO₂ emissions
Chile,chl,2020,90
Chile,CHL,2020,10
Chile,CHL,2019,85.5
United States,USA,2020,4713.5
United States,USA,2019,5255.8
China,CHN,2020,10956.2
China,CHN,2019,
World,OWID_WRL,2020,34807.3
Africa,,2020,1359.4
`

// FullDatasetCSV is the alternate layout with a per-capita column and an
// extra column that is ignored.
const FullDatasetCSV = `country,year,iso_code,population,co2,co2_per_capita
Chile,2020,CHL,19300000,100,5.2
Chile,2021,CHL,19490000,,
United States,2020,USA,331000000,4713.5,14.2
World,2020,,7800000000,34807.3,4.5
`

// AmbiguousCSV has two measurement candidates
const AmbiguousCSV = `Entity,Code,Year,co2,co2_per_capita
Chile,CHL,2020,100,5.2
`

// CountriesGeoJSON is a Natural Earth style feature collection with a
// duplicated code, a placeholder "-99" code and a feature without a code.
const CountriesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"ISO_A3": "usa", "NAME": "United States of America"},
     "geometry": {"type": "Polygon", "coordinates": [[[-125, 25], [-66, 25], [-66, 49], [-125, 49], [-125, 25]]]}},
    {"type": "Feature", "properties": {"ISO_A3": "CHL", "NAME": "Chile"},
     "geometry": {"type": "Polygon", "coordinates": [[[-75, -56], [-66, -56], [-66, -17], [-75, -17], [-75, -56]]]}},
    {"type": "Feature", "properties": {"ISO_A3": "CHL", "NAME": "Chile (islands)"},
     "geometry": {"type": "Point", "coordinates": [-109.3, -27.1]}},
    {"type": "Feature", "properties": {"ISO_A3": "CHN", "NAME": "China"},
     "geometry": {"type": "Polygon", "coordinates": [[[73, 18], [135, 18], [135, 53], [73, 53], [73, 18]]]}},
    {"type": "Feature", "properties": {"ISO_A3": "-99", "NAME": "Kosovo"},
     "geometry": {"type": "Point", "coordinates": [20.9, 42.6]}},
    {"type": "Feature", "properties": {"NAME": "Bir Tawil"},
     "geometry": {"type": "Point", "coordinates": [33.7, 21.9]}}
  ]
}`

// WriteFixture writes content to name inside a fresh temp dir and returns the path
func WriteFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
