package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"co2dash/internal/services"
	"co2dash/pkg/contracts/domain"
)

var (
	headerColor  = color.New(color.Bold)
	noDataColor  = color.New(color.FgHiBlack)
	warningColor = color.New(color.FgYellow)
	titleColor   = color.New(color.FgCyan, color.Bold)
)

// viewFlags are the dashboard controls as command line flags
type viewFlags struct {
	year      int
	metric    string
	n         int
	countries []string
}

func (f *viewFlags) bind(cmd *cobra.Command, withN, withCountries bool) {
	cmd.Flags().IntVarP(&f.year, "year", "y", 0, "year to show, 0 for the latest year")
	cmd.Flags().StringVarP(&f.metric, "metric", "m", "", "co2 or co2_per_capita (default from config)")
	if withN {
		cmd.Flags().IntVarP(&f.n, "top", "n", 0, "number of ranked countries (default from config)")
	}
	if withCountries {
		cmd.Flags().StringSliceVarP(&f.countries, "countries", "c", nil, "ISO3 codes, comma separated")
	}
}

func (f *viewFlags) parseMetric() (domain.Metric, error) {
	if f.metric == "" {
		return "", nil
	}
	return domain.ParseMetric(f.metric)
}

func viewCmd(opts *rootOptions) *cobra.Command {
	flags := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the map partition of one year",
		Long: `Show every country of the master for one year, split into countries
with a value and countries without data. Codes of the year that the
master does not know are listed as unmatched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := flags.parseMetric()
			if err != nil {
				return err
			}
			dashboard, _, err := opts.dashboard()
			if err != nil {
				return err
			}

			result, err := dashboard.YearMap(cmd.Context(), flags.year, metric)
			if err != nil {
				return err
			}
			printYearView(cmd.OutOrStdout(), result.View)
			printWarnings(cmd.OutOrStdout(), result.Warnings)
			return nil
		},
	}

	flags.bind(cmd, false, false)
	return cmd
}

func rankCmd(opts *rootOptions) *cobra.Command {
	flags := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the top emitters of one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := flags.parseMetric()
			if err != nil {
				return err
			}
			dashboard, _, err := opts.dashboard()
			if err != nil {
				return err
			}

			controls, err := dashboard.Resolve(cmd.Context(), services.Controls{
				Year:      flags.year,
				Metric:    metric,
				Countries: flags.countries,
				TopN:      flags.n,
			})
			if err != nil {
				return err
			}
			result, err := dashboard.Ranking(cmd.Context(), controls.Year, controls.Metric, controls.TopN, controls.Countries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printControls(out, controls)
			titleColor.Fprintln(out, result.Title)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			headerColor.Fprintln(tw, "RANK\tCODE\tCOUNTRY\tVALUE")
			for i, e := range result.Entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, e.Code, e.Country, formatFloat(e.Value))
			}
			tw.Flush()
			printWarnings(out, result.Warnings)
			return nil
		},
	}

	flags.bind(cmd, true, true)
	return cmd
}

func seriesCmd(opts *rootOptions) *cobra.Command {
	flags := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show the yearly series of the selected countries",
		Long: `Show the yearly values of each selected country. Without --countries
every country of the master is shown. --year sets the marker year.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := flags.parseMetric()
			if err != nil {
				return err
			}
			dashboard, _, err := opts.dashboard()
			if err != nil {
				return err
			}

			result, err := dashboard.Series(cmd.Context(), flags.countries, metric, flags.year)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			titleColor.Fprintln(out, result.Title)
			for _, s := range result.Series {
				points := make([]string, 0, len(s.Points))
				for _, p := range s.Points {
					point := fmt.Sprintf("%d=%s", p.Year, formatFloat(p.Value))
					if p.Year == result.MarkerYear {
						point = "[" + point + "]"
					}
					points = append(points, point)
				}
				if len(points) == 0 {
					noDataColor.Fprintf(out, "%s\t%s\tno data\n", s.Code, s.Country)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", s.Code, s.Country, strings.Join(points, " "))
			}
			printWarnings(out, result.Warnings)
			return nil
		},
	}

	flags.bind(cmd, false, true)
	return cmd
}

func printYearView(out io.Writer, view *domain.YearView) {
	titleColor.Fprintln(out, view.Title)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	headerColor.Fprintln(tw, "CODE\tCOUNTRY\tVALUE")
	for _, cv := range view.WithData {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cv.Code, cv.Country, formatFloat(cv.Value.Value))
	}
	for _, cv := range view.WithoutData {
		noDataColor.Fprintf(tw, "%s\t%s\tno data\n", cv.Code, cv.Country)
	}
	tw.Flush()

	fmt.Fprintf(out, "%d with data, %d without data\n", len(view.WithData), len(view.WithoutData))
	if len(view.Unmatched) > 0 {
		fmt.Fprintf(out, "unmatched: %s\n", strings.Join(view.Unmatched, ", "))
	}
}

// printControls echoes the controls after defaults were applied
func printControls(out io.Writer, c services.Controls) {
	countries := "all"
	if len(c.Countries) > 0 {
		countries = strings.Join(c.Countries, ",")
	}
	fmt.Fprintf(out, "year=%d metric=%s top=%d countries=%s\n", c.Year, c.Metric, c.TopN, countries)
}

func printWarnings(out io.Writer, warnings []domain.Warning) {
	for _, w := range warnings {
		warningColor.Fprintf(out, "warning: %s\n", w.Message)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
