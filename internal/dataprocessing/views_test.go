package dataprocessing

import (
	"context"
	stderrors "errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2dash/internal/shared/testutil"
	"co2dash/pkg/contracts/domain"
)

func rec(country, code string, year int, co2 float64) domain.EmissionRecord {
	return domain.EmissionRecord{Country: country, Code: code, Year: year, CO2: domain.Some(co2)}
}

func testMaster() *domain.CountryMaster {
	return domain.NewCountryMaster([]domain.MasterRow{
		{Code: "USA", Country: "United States"},
		{Code: "CHL", Country: "Chile"},
		{Code: "CHN", Country: "China"},
	})
}

func TestMakeYearView_SumsReusedCodes(t *testing.T) {
	path := testutil.WriteFixture(t, "chile.csv", "Entity,Code,Year,co2\nChile,chl,2020,90\nChile, CHL ,2020,10\n")
	table, err := NewLoader(nil).LoadEmissions(context.Background(), path)
	require.NoError(t, err)
	records := table.Records

	view, err := MakeYearView(records, MasterFromRecords(records), 2020, domain.MetricCO2, AggregateSum)
	require.NoError(t, err)

	want := []domain.CountryValue{{Code: "CHL", Country: "Chile", Value: domain.Some(100.0)}}
	if diff := cmp.Diff(want, view.WithData); diff != "" {
		t.Errorf("WithData mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, view.WithoutData)
	assert.Equal(t, "CO₂ emissions by country in 2020", view.Title)
}

func TestMakeYearView_EmptyYear(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("Chile", "CHL", 2020, 100),
		rec("China", "CHN", 2020, 10956.2),
	}

	view, err := MakeYearView(records, testMaster(), 1751, domain.MetricCO2, AggregateSum)
	require.NoError(t, err)

	assert.Empty(t, view.WithData)
	assert.NotNil(t, view.WithData)
	assert.Equal(t, []string{"USA", "CHL", "CHN"}, codesOf(view.WithoutData))
	assert.Nil(t, view.Unmatched)
}

func TestMakeYearView_PartitionsMaster(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("Chile", "CHL", 2019, 85.5),
		rec("Chile", "CHL", 2020, 100),
		{Country: "China", Code: "CHN", Year: 2019},
		rec("United States", "USA", 2020, 4713.5),
		rec("Kosovo", "XKX", 2020, 7.9),
	}
	master := testMaster()

	for _, year := range []int{1751, 2019, 2020, 2024} {
		for _, metric := range []domain.Metric{domain.MetricCO2, domain.MetricCO2PerCapita} {
			view, err := MakeYearView(records, master, year, metric, AggregateSum)
			require.NoError(t, err)

			withData := codesOf(view.WithData)
			withoutData := codesOf(view.WithoutData)
			for _, c := range withData {
				assert.NotContains(t, withoutData, c, "year %d metric %s", year, metric)
			}

			all := append(append([]string{}, withData...), withoutData...)
			sort.Strings(all)
			want := master.Codes()
			sort.Strings(want)
			assert.Equal(t, want, all, "year %d metric %s", year, metric)
		}
	}
}

func TestMakeYearView_NullMeasuresStayWithoutData(t *testing.T) {
	records := []domain.EmissionRecord{
		{Country: "China", Code: "CHN", Year: 2019},
		{Country: "China", Code: "CHN", Year: 2019},
		rec("Chile", "CHL", 2019, 85.5),
	}

	view, err := MakeYearView(records, testMaster(), 2019, domain.MetricCO2, AggregateSum)
	require.NoError(t, err)

	assert.Equal(t, []string{"CHL"}, codesOf(view.WithData))
	assert.Equal(t, []string{"USA", "CHN"}, codesOf(view.WithoutData))
}

func TestMakeYearView_ReportsUnmatched(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("Kosovo", "XKX", 2020, 7.9),
		rec("Chile", "CHL", 2020, 100),
	}

	view, err := MakeYearView(records, testMaster(), 2020, domain.MetricCO2, AggregateSum)
	require.NoError(t, err)

	assert.Equal(t, []string{"XKX"}, view.Unmatched)
	assert.Equal(t, []string{"CHL", "USA", "CHN"}, view.Codes())
}

func TestMakeYearView_StrictPolicy(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("Chile", "CHL", 2020, 90),
		rec("USSR", "SUN", 1950, 1),
		rec("Chile (old)", "CHL", 2020, 10),
	}

	_, err := MakeYearView(records, testMaster(), 2020, domain.MetricCO2, AggregateStrict)
	require.Error(t, err)

	var dup *DuplicateCodeError
	require.True(t, stderrors.As(err, &dup))
	assert.Equal(t, "CHL", dup.Code)
	assert.Equal(t, 2020, dup.Year)
	assert.Equal(t, []string{"Chile", "Chile (old)"}, dup.Countries)

	view, err := MakeYearView(records, testMaster(), 1950, domain.MetricCO2, AggregateStrict)
	require.NoError(t, err)
	assert.Equal(t, []string{"SUN"}, view.Unmatched)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	a := rec("Chile", "CHL", 2020, 90.25)
	b := rec("Chile", "CHL", 2020, 9.75)
	b.CO2PerCapita = domain.Some(0.5)

	forward, err := Aggregate([]domain.EmissionRecord{a, b}, AggregateSum)
	require.NoError(t, err)
	backward, err := Aggregate([]domain.EmissionRecord{b, a}, AggregateSum)
	require.NoError(t, err)

	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	assert.Equal(t, forward[0].CO2, backward[0].CO2)
	assert.Equal(t, domain.Some(100), forward[0].CO2)
	assert.Equal(t, domain.Some(0.5), forward[0].CO2PerCapita)
}

func TestParseAggregationPolicy(t *testing.T) {
	p, err := ParseAggregationPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AggregateSum, p)

	p, err = ParseAggregationPolicy(" STRICT ")
	require.NoError(t, err)
	assert.Equal(t, AggregateStrict, p)

	_, err = ParseAggregationPolicy("mean")
	assert.Error(t, err)
}

func TestRankTopN(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("A", "AAA", 2020, 5),
		rec("B", "BBB", 2020, 10),
		rec("C", "CCC", 2020, 10),
	}

	tests := []struct {
		name string
		n    int
		want []domain.RankEntry
	}{
		{
			name: "ties keep input order",
			n:    2,
			want: []domain.RankEntry{
				{Country: "B", Code: "BBB", Value: 10},
				{Country: "C", Code: "CCC", Value: 10},
			},
		},
		{
			name: "n larger than input",
			n:    10,
			want: []domain.RankEntry{
				{Country: "B", Code: "BBB", Value: 10},
				{Country: "C", Code: "CCC", Value: 10},
				{Country: "A", Code: "AAA", Value: 5},
			},
		},
		{
			name: "zero",
			n:    0,
			want: []domain.RankEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankTopN(records, domain.MetricCO2, tt.n)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("RankTopN mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankTopN_DropsNulls(t *testing.T) {
	records := []domain.EmissionRecord{
		{Country: "A", Code: "AAA", Year: 2020, CO2: domain.Some(1), CO2PerCapita: domain.Some(3)},
		{Country: "B", Code: "BBB", Year: 2020, CO2: domain.Some(2)},
		{Country: "C", Code: "CCC", Year: 2020, CO2PerCapita: domain.Some(7)},
	}

	got := RankTopN(records, domain.MetricCO2PerCapita, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "CCC", got[0].Code)
	assert.Equal(t, "AAA", got[1].Code)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Value, got[i].Value)
	}
}

func TestSeries(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("Chile", "CHL", 2020, 90),
		rec("China", "CHN", 2019, 10),
		rec("Chile", "CHL", 2019, 85.5),
		rec("Chile", "CHL", 2020, 10),
		{Country: "China", Code: "CHN", Year: 2020},
		rec("United States", "USA", 2020, 4713.5),
	}

	t.Run("selected countries keep request order", func(t *testing.T) {
		got := Series(records, []string{"CHN", "CHL", "CHN", "ZZZ"}, domain.MetricCO2)

		want := []domain.CountrySeries{
			{Code: "CHN", Country: "China", Points: []domain.SeriesPoint{{Year: 2019, Value: 10}}},
			{Code: "CHL", Country: "Chile", Points: []domain.SeriesPoint{{Year: 2019, Value: 85.5}, {Year: 2020, Value: 100}}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Series mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all countries in first-seen order", func(t *testing.T) {
		got := Series(records, nil, domain.MetricCO2)
		require.Len(t, got, 3)
		assert.Equal(t, "CHL", got[0].Code)
		assert.Equal(t, "CHN", got[1].Code)
		assert.Equal(t, "USA", got[2].Code)
	})
}

func TestYearBounds(t *testing.T) {
	_, ok := YearBounds(nil)
	assert.False(t, ok)

	bounds, ok := YearBounds([]domain.EmissionRecord{
		rec("Chile", "CHL", 1900, 1),
		rec("Chile", "CHL", 1751, 1),
		rec("Chile", "CHL", 2023, 1),
	})
	require.True(t, ok)
	assert.Equal(t, domain.YearBounds{Min: 1751, Max: 2023}, bounds)
	assert.True(t, bounds.Contains(1751))
	assert.False(t, bounds.Contains(2024))
}

func TestFilterCountries(t *testing.T) {
	records := []domain.EmissionRecord{
		rec("Chile", "CHL", 2020, 1),
		rec("China", "CHN", 2020, 2),
	}

	assert.Len(t, FilterCountries(records, nil), 2)
	assert.Equal(t, "CHN", FilterCountries(records, []string{"CHN"})[0].Code)
	assert.Empty(t, FilterCountries(records, []string{"USA"}))
}

func TestWarnings(t *testing.T) {
	records := []domain.EmissionRecord{
		{Country: "Chile", Code: "CHL", Year: 2020, CO2: domain.Some(100)},
	}

	assert.Nil(t, CheckYear(records, 2020, ChartMap))

	w := CheckYear(records, 1751, ChartMap)
	require.NotNil(t, w)
	assert.Equal(t, domain.WarningEmptyYear, w.Kind)
	assert.Equal(t, ChartMap, w.Chart)
	assert.Equal(t, "no emissions data for 1751", w.Message)

	assert.Nil(t, CheckMetric(records, domain.MetricCO2, 2020, ChartRanking))

	w = CheckMetric(records, domain.MetricCO2PerCapita, 2020, ChartRanking)
	require.NotNil(t, w)
	assert.Equal(t, domain.WarningNoMetricValues, w.Kind)
	assert.Equal(t, domain.MetricCO2PerCapita, w.Metric)
}

func codesOf(values []domain.CountryValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Code)
	}
	return out
}
