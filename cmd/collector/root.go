package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/product-collector/internal/config"
	"github.com/Sternrassler/product-collector/pkg/logging"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Batch product collection pipeline",
		Long: color.CyanString(`collector fetches product details from the product API`) + `

It reads identifiers from a CSV or Excel file, fetches them concurrently with
retries, writes successful products as numbered JSON batches and appends failed
identifiers to per-class CSV files. Checkpointed runs resume from the first
batch that was not fully persisted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is ./collector.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human-readable console logs")
	mustBind(a.v, "log.level", flags.Lookup("log-level"))
	mustBind(a.v, "log.pretty", flags.Lookup("log-pretty"))

	cmd.AddCommand(
		newCollectCmd(a),
		newCleanCmd(a),
		newFilterCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// load resolves configuration and configures logging from it.
func (a *app) load() (*config.Config, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})
	return cfg, nil
}
