package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"co2dash/internal/charts"
	"co2dash/internal/exporter"
	"co2dash/internal/infrastructure"
	"co2dash/internal/validation"
	"co2dash/pkg/contracts/domain"
)

var okColor = color.New(color.FgGreen)

func exportCmd(opts *rootOptions) *cobra.Command {
	flags := &viewFlags{}
	var (
		format string
		table  string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a year view as CSV, XLSX or GeoJSON",
		Long: `Write the data behind the dashboard to a file.

Formats:
  csv      one table, chosen with --table view|ranking|series
  xlsx     the year view sheet plus a ranking sheet
  geojson  one feature per master country with code, country, value, has_data

The default file name is co2_{year}_{metric}.{format}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := flags.parseMetric()
			if err != nil {
				return err
			}
			switch format {
			case "csv", "xlsx", "geojson":
			default:
				return fmt.Errorf("unknown format %q, want csv, xlsx or geojson", format)
			}

			dashboard, cfg, err := opts.dashboard()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := infrastructure.WithComponent(nil, "cli")

			mapResult, err := dashboard.YearMap(ctx, flags.year, metric)
			if err != nil {
				return err
			}
			view := mapResult.View
			if out == "" {
				out = fmt.Sprintf("co2_%d_%s.%s", view.Year, view.Metric, format)
			}
			if err := validation.NewFileValidator(logger).ValidateOutputPath(out); err != nil {
				return err
			}

			switch format {
			case "csv":
				w := exporter.NewCSVWriter("", cfg.Data.CSVBOM, logger)
				switch table {
				case "view":
					err = w.WriteYearView(out, view)
				case "ranking":
					ranking, rerr := dashboard.Ranking(ctx, view.Year, view.Metric, flags.n, flags.countries)
					if rerr != nil {
						return rerr
					}
					err = w.WriteRanking(out, ranking.Entries)
				case "series":
					series, serr := dashboard.Series(ctx, flags.countries, view.Metric, view.Year)
					if serr != nil {
						return serr
					}
					err = w.WriteSeries(out, series.Series)
				default:
					return fmt.Errorf("unknown table %q, want view, ranking or series", table)
				}

			case "xlsx":
				ranking, rerr := dashboard.Ranking(ctx, view.Year, view.Metric, flags.n, flags.countries)
				if rerr != nil {
					return rerr
				}
				err = exporter.NewWorkbookExporter(logger).Export(out, exporter.Workbook{
					Views:   []*domain.YearView{view},
					Ranking: ranking.Entries,
				})

			case "geojson":
				master, merr := dashboard.Master(ctx)
				if merr != nil {
					return merr
				}
				err = writeFile(out, func(f *os.File) error {
					return exporter.NewGeoJSONWriter().Encode(f, view, master)
				})
			}
			if err != nil {
				return fmt.Errorf("%s export failed: %w", format, err)
			}

			okColor.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			printWarnings(cmd.OutOrStdout(), mapResult.Warnings)
			return nil
		},
	}

	flags.bind(cmd, true, true)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv, xlsx or geojson")
	cmd.Flags().StringVar(&table, "table", "view", "csv table: view, ranking or series")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func chartCmd(opts *rootOptions) *cobra.Command {
	flags := &viewFlags{}
	var (
		out    string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:       "chart ranking|series",
		Short:     "Render the ranking bar chart or the series line chart as PNG",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"ranking", "series"},
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := flags.parseMetric()
			if err != nil {
				return err
			}
			dashboard, _, err := opts.dashboard()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			chartOpts := charts.Options{Width: width, Height: height}
			if out == "" {
				out = args[0] + ".png"
			}
			if err := validation.NewFileValidator(infrastructure.GetLogger()).ValidateOutputPath(out); err != nil {
				return err
			}

			var warnings []domain.Warning
			switch args[0] {
			case "ranking":
				result, err := dashboard.Ranking(ctx, flags.year, metric, flags.n, flags.countries)
				if err != nil {
					return err
				}
				warnings = result.Warnings
				err = writeFile(out, func(f *os.File) error {
					return charts.RenderRanking(f, result.Entries, result.Title, result.Metric, chartOpts)
				})
				if err != nil {
					return err
				}
			case "series":
				result, err := dashboard.Series(ctx, flags.countries, metric, flags.year)
				if err != nil {
					return err
				}
				warnings = result.Warnings
				err = writeFile(out, func(f *os.File) error {
					return charts.RenderSeries(f, result.Series, result.MarkerYear, result.Title, result.Metric, chartOpts)
				})
				if err != nil {
					return err
				}
			}

			okColor.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			printWarnings(cmd.OutOrStdout(), warnings)
			return nil
		},
	}

	flags.bind(cmd, true, true)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG (default ranking.png or series.png)")
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels")
	return cmd
}

// writeFile creates path and runs write on it. A failed write removes the file.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
