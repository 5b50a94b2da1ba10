package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	awsadapter "github.com/retailops/finops-correlator/internal/adapter/driven/aws"
	configadapter "github.com/retailops/finops-correlator/internal/adapter/driven/config"
	"github.com/retailops/finops-correlator/internal/application/usecase"
	"github.com/retailops/finops-correlator/internal/domain/correlation"
	"github.com/retailops/finops-correlator/internal/domain/entity"
	"github.com/retailops/finops-correlator/internal/shared/types"
	"github.com/retailops/finops-correlator/pkg/console"
	"github.com/retailops/finops-correlator/pkg/version"
)

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd *cobra.Command
	console types.ConsoleInterface
	version string
}

// NewCLIApp creates a new CLI application.
func NewCLIApp(versionStr string) *CLIApp {
	app := &CLIApp{
		console: console.NewConsole(),
		version: versionStr,
	}

	rootCmd := &cobra.Command{
		Use:     "finops-correlator",
		Short:   "Telemetry-cost correlation and allocation engine",
		Version: version.FormatVersion(),
		RunE:    app.runCommand,
	}
	rootCmd.SetVersionTemplate(`{{printf "finops-correlator version: %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	rootCmd.PersistentFlags().StringP("log-group", "g", "", "CloudWatch log group holding gateway telemetry")
	rootCmd.PersistentFlags().StringP("bucket", "b", "", "S3 bucket for correlated output")
	rootCmd.PersistentFlags().IntP("lookback", "l", 0, "Lookback window in hours for each collection cycle")
	rootCmd.PersistentFlags().IntP("window", "w", 0, "Correlation time window in minutes")
	rootCmd.PersistentFlags().StringP("method", "m", "", "Allocation method: proportional, equal, usage-based, token-based")
	rootCmd.PersistentFlags().Bool("auto-select", false, "Let the optimizer pick the allocation method per cycle")
	rootCmd.PersistentFlags().BoolP("schedule", "s", false, "Run continuously on the configured interval")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Correlate and report without writing to S3")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

// parseArgs parses command-line arguments into a CLIArgs struct.
func (app *CLIApp) parseArgs() (*types.CLIArgs, error) {
	configFile, _ := app.rootCmd.Flags().GetString("config-file")
	logGroup, _ := app.rootCmd.Flags().GetString("log-group")
	bucket, _ := app.rootCmd.Flags().GetString("bucket")
	lookback, _ := app.rootCmd.Flags().GetInt("lookback")
	window, _ := app.rootCmd.Flags().GetInt("window")
	method, _ := app.rootCmd.Flags().GetString("method")
	autoSelect, _ := app.rootCmd.Flags().GetBool("auto-select")
	schedule, _ := app.rootCmd.Flags().GetBool("schedule")
	dryRun, _ := app.rootCmd.Flags().GetBool("dry-run")
	verbose, _ := app.rootCmd.Flags().GetBool("verbose")

	return &types.CLIArgs{
		ConfigFile:       configFile,
		LogGroupName:     logGroup,
		Bucket:           bucket,
		LookbackHours:    lookback,
		TimeWindowMins:   window,
		AllocationMethod: method,
		AutoSelect:       autoSelect,
		Schedule:         schedule,
		DryRun:           dryRun,
		Verbose:          verbose,
	}, nil
}

// resolveConfig loads the config file when given and applies flag
// overrides on top.
func (app *CLIApp) resolveConfig(args *types.CLIArgs) (types.Config, error) {
	cfg := types.DefaultConfig()

	if args.ConfigFile != "" {
		configRepo := configadapter.NewConfigRepository()
		loaded, err := configRepo.LoadConfigFile(args.ConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	if args.LogGroupName != "" {
		cfg.LogGroupName = args.LogGroupName
	}
	if args.Bucket != "" {
		cfg.Bucket = args.Bucket
	}
	if args.LookbackHours > 0 {
		cfg.LookbackHours = args.LookbackHours
	}
	if args.TimeWindowMins > 0 {
		cfg.TimeWindowMinutes = args.TimeWindowMins
	}
	if args.AllocationMethod != "" {
		cfg.AllocationMethod = args.AllocationMethod
	}
	if args.AutoSelect {
		cfg.AutoSelectMethod = true
	}
	if args.Verbose {
		cfg.Verbose = true
	}

	return cfg, cfg.Validate()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

// runCommand is the main entry point for the CLI command.
func (app *CLIApp) runCommand(cmd *cobra.Command, args []string) error {
	displayWelcomeBanner(app.version)

	cliArgs, err := app.parseArgs()
	if err != nil {
		return err
	}

	cfg, err := app.resolveConfig(cliArgs)
	if err != nil {
		app.console.LogError("Configuration error: %v", err)
		return err
	}

	log := newLogger(cfg.Verbose)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := app.console.Status("Verifying AWS credentials...")
	awsCfg, err := awsadapter.LoadConfig(ctx)
	if err != nil {
		status.Stop()
		return err
	}
	accountID, err := awsadapter.VerifyIdentity(ctx, awsCfg)
	status.Stop()
	if err != nil {
		app.console.LogError("AWS credential check failed: %v", err)
		return err
	}
	app.console.LogSuccess("Authenticated to account %s", accountID)

	telemetryRepo := awsadapter.NewTelemetryRepository(awsCfg, cfg, log)
	costRepo := awsadapter.NewCostRepository(awsCfg, cfg, log)
	storageRepo := awsadapter.NewStorageRepository(awsCfg, cfg, log)
	engine := correlation.NewEngine(cfg.WindowWidth(), log)

	collector := usecase.NewCollectorUseCase(
		cfg,
		telemetryRepo,
		costRepo,
		storageRepo,
		engine,
		log,
		nil,
		cliArgs.DryRun,
	)

	if cliArgs.Schedule {
		app.console.LogInfo("Running scheduled collection every %d minutes", cfg.IntervalMinutes)
		err := collector.RunScheduled(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	summary, err := collector.RunOnce(ctx)
	if err != nil {
		app.console.LogError("Collection cycle failed: %v", err)
		return err
	}
	app.printSummary(summary)
	return nil
}

// printSummary renders the run summary table.
func (app *CLIApp) printSummary(summary *entity.CorrelationSummary) {
	if summary == nil || summary.TotalRecords == 0 {
		app.console.LogInfo("No correlated records this cycle")
		return
	}

	table := app.console.CreateTable()
	table.AddColumn("Metric")
	table.AddColumn("Value")
	table.AddRow("Allocation method", string(summary.AllocationMethod))
	table.AddRow("Allocated records", summary.TotalRecords)
	table.AddRow("Total allocated cost", fmt.Sprintf("$%.4f", summary.TotalAllocatedCost))
	table.AddRow("Unique devices", summary.UniqueDevices)
	table.AddRow("Unique stores", summary.UniqueStores)
	table.AddRow("Unknown devices", fmt.Sprintf("%.1f%%", summary.UnknownDevicePercent))
	table.AddRow("Unknown stores", fmt.Sprintf("%.1f%%", summary.UnknownStorePercent))
	table.AddRow("Avg confidence", fmt.Sprintf("%.2f", summary.AvgConfidence))
	table.AddRow("Avg accuracy", fmt.Sprintf("%.2f", summary.AvgAccuracy))
	table.AddRow("Avg utilization", fmt.Sprintf("%.2f", summary.AvgUtilization))
	app.console.Println(table.Render())

	if len(summary.CostByStore) > 0 {
		stores := make([]string, 0, len(summary.CostByStore))
		for store := range summary.CostByStore {
			stores = append(stores, store)
		}
		sort.Strings(stores)

		storeTable := app.console.CreateTable()
		storeTable.AddColumn("Store")
		storeTable.AddColumn("Allocated cost")
		for _, store := range stores {
			storeTable.AddRow(store, fmt.Sprintf("$%.4f", summary.CostByStore[store]))
		}
		app.console.Println(storeTable.Render())
	}
}
