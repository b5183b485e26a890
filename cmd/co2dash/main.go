package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"co2dash/internal/app"
	"co2dash/internal/config"
	"co2dash/internal/infrastructure"
	"co2dash/internal/services"
)

// rootOptions are the persistent flags shared by every command
type rootOptions struct {
	configFile    string
	emissionsFile string
	geometryFile  string
	aggregation   string
	verbose       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "co2dash",
		Short:   "CO₂ emissions dashboard",
		Version: app.Version,
		Long: `co2dash prepares per-country CO₂ emissions data and serves it as an
interactive dashboard: a choropleth map, a top-N ranking and per-country
time series.

The same views are available offline:
  co2dash view --year 2020              # map partition of one year
  co2dash rank --year 2020 -n 5         # top-5 emitters
  co2dash series --countries CHN,USA    # time series
  co2dash export --year 2020 --format xlsx
  co2dash chart ranking --out top.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// one trace id per invocation ties the command's log lines together
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default co2dash.yaml or configs/co2dash.yaml)")
	flags.StringVar(&opts.emissionsFile, "data", "", "emissions CSV, overrides data.emissions_file")
	flags.StringVar(&opts.geometryFile, "geometry", "", "country GeoJSON, overrides data.geometry_file")
	flags.StringVar(&opts.aggregation, "aggregation", "", "duplicate code policy: sum or strict")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(viewCmd(opts))
	rootCmd.AddCommand(rankCmd(opts))
	rootCmd.AddCommand(seriesCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))
	rootCmd.AddCommand(chartCmd(opts))

	return rootCmd
}

// loadConfig reads the configuration and applies the flag overrides
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFrom(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.emissionsFile != "" {
		cfg.Data.EmissionsFile = o.emissionsFile
	}
	if o.geometryFile != "" {
		cfg.Data.GeometryFile = o.geometryFile
	}
	if o.aggregation != "" {
		cfg.Data.Aggregation = o.aggregation
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// dashboard builds a dashboard service for the offline commands. Logs go to
// stderr so they never mix with the command output.
func (o *rootOptions) dashboard() (*services.DashboardService, *config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	cfg.Logging.Output = "stderr"
	if !o.verbose {
		cfg.Logging.Level = "warn"
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = infrastructure.WithComponent(logger, "cli")

	_, dashboard, err := app.NewDashboard(cfg.Data, logger, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	return dashboard, cfg, nil
}
