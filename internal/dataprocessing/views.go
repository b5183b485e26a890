package dataprocessing

import (
	"fmt"
	"sort"

	"co2dash/pkg/contracts/domain"
)

// FilterYear returns the records of a single year in input order
func FilterYear(records []domain.EmissionRecord, year int) []domain.EmissionRecord {
	out := make([]domain.EmissionRecord, 0)
	for _, r := range records {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// FilterCountries keeps records whose code is in codes. An empty list keeps everything.
func FilterCountries(records []domain.EmissionRecord, codes []string) []domain.EmissionRecord {
	if len(codes) == 0 {
		return records
	}
	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}
	out := make([]domain.EmissionRecord, 0)
	for _, r := range records {
		if _, ok := wanted[r.Code]; ok {
			out = append(out, r)
		}
	}
	return out
}

// YearBounds returns the smallest and largest year present. ok is false for no records.
func YearBounds(records []domain.EmissionRecord) (bounds domain.YearBounds, ok bool) {
	for i, r := range records {
		if i == 0 || r.Year < bounds.Min {
			bounds.Min = r.Year
		}
		if i == 0 || r.Year > bounds.Max {
			bounds.Max = r.Year
		}
	}
	return bounds, len(records) > 0
}

// MapTitle is the heading of a year map
func MapTitle(year int, metric domain.Metric) string {
	if metric == domain.MetricCO2PerCapita {
		return fmt.Sprintf("CO₂ emissions per capita by country in %d", year)
	}
	return fmt.Sprintf("CO₂ emissions by country in %d", year)
}

// MakeYearView left-joins one year of aggregated records onto the master.
// Every master code lands in exactly one of WithData and WithoutData, in
// master order. Record codes missing from the master are listed in Unmatched.
func MakeYearView(records []domain.EmissionRecord, master *domain.CountryMaster, year int, metric domain.Metric, policy AggregationPolicy) (*domain.YearView, error) {
	aggregated, err := Aggregate(FilterYear(records, year), policy)
	if err != nil {
		return nil, err
	}

	values := make(map[string]domain.Measure, len(aggregated))
	for _, r := range aggregated {
		values[r.Code] = r.Value(metric)
	}

	view := &domain.YearView{
		Year:        year,
		Metric:      metric,
		Title:       MapTitle(year, metric),
		WithData:    make([]domain.CountryValue, 0),
		WithoutData: make([]domain.CountryValue, 0),
	}

	for _, row := range master.Rows() {
		cv := domain.CountryValue{Code: row.Code, Country: row.Country, Value: values[row.Code]}
		if cv.Value.Valid {
			view.WithData = append(view.WithData, cv)
		} else {
			view.WithoutData = append(view.WithoutData, cv)
		}
	}

	for _, r := range aggregated {
		if _, ok := master.Lookup(r.Code); !ok {
			view.Unmatched = append(view.Unmatched, r.Code)
		}
	}

	return view, nil
}

// RankTopN returns the n largest non-null values of metric, largest first.
// Ties keep input order. n <= 0 yields an empty ranking.
func RankTopN(records []domain.EmissionRecord, metric domain.Metric, n int) []domain.RankEntry {
	entries := make([]domain.RankEntry, 0, len(records))
	if n <= 0 {
		return entries
	}
	for _, r := range records {
		if v := r.Value(metric); v.Valid {
			entries = append(entries, domain.RankEntry{Country: r.Country, Code: r.Code, Value: v.Value})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Series builds one time series per code. With no codes every country is
// included in first-seen order. Duplicate (code, year) rows are summed and
// null points are skipped. Codes without any record are omitted.
func Series(records []domain.EmissionRecord, codes []string, metric domain.Metric) []domain.CountrySeries {
	// AggregateSum never reports a duplicate, so the error is always nil
	aggregated, _ := Aggregate(FilterCountries(records, codes), AggregateSum)

	byCode := make(map[string]*domain.CountrySeries)
	order := make([]string, 0)
	for _, r := range aggregated {
		s, ok := byCode[r.Code]
		if !ok {
			s = &domain.CountrySeries{Code: r.Code, Country: r.Country, Points: make([]domain.SeriesPoint, 0)}
			byCode[r.Code] = s
			order = append(order, r.Code)
		}
		if v := r.Value(metric); v.Valid {
			s.Points = append(s.Points, domain.SeriesPoint{Year: r.Year, Value: v.Value})
		}
	}

	if len(codes) > 0 {
		order = order[:0]
		emitted := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			if _, done := emitted[c]; done {
				continue
			}
			if _, ok := byCode[c]; ok {
				emitted[c] = struct{}{}
				order = append(order, c)
			}
		}
	}

	out := make([]domain.CountrySeries, 0, len(order))
	for _, code := range order {
		s := byCode[code]
		sort.SliceStable(s.Points, func(i, j int) bool {
			return s.Points[i].Year < s.Points[j].Year
		})
		out = append(out, *s)
	}
	return out
}
