package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/prompt"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
	"github.com/supporttools/GoDBAdmin/pkg/tempbackup"
	"github.com/supporttools/GoDBAdmin/pkg/version"
)

// exitCode is what main hands to os.Exit after Execute returns; command
// bodies set it through the adapter instead of exiting mid-defer.
var exitCode int

// Global flags.
var (
	flagConnect string
	flagType    string
	flagDebug   bool
	flagVerbose bool
)

// app bundles the per-invocation collaborators.
type app struct {
	registry *config.Registry
	adapter  *adapter.Adapter
	store    *tempbackup.Store
	pipeline *safety.Pipeline
	tools    *common.ToolLocator
	prompter prompt.Prompter

	stopEviction func()
}

var rootCmd = &cobra.Command{
	Use:           "godbadmin",
	Short:         "Administer PostgreSQL and MongoDB projects safely",
	Long: `GoDBAdmin is an operator CLI for PostgreSQL and MongoDB databases
organized around named connection profiles ("projects").

Destructive commands are rehearsed first: an encrypted temp backup is
taken, the operation runs in a disposable shadow database, and the
resulting diff gates the real execution.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Get().String(),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConnect, "connect", "", "path to connect.json (default ./connect.json)")
	rootCmd.PersistentFlags().StringVar(&flagType, "type", "", "restrict project resolution to a backend: postgres or mongodb")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show stack traces for errors")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.SetupLogging(flagDebug)
		logging.Verbose = flagVerbose
		logging.AttachDailyErrorLog("logs")
	}

	rootCmd.AddCommand(versionCmd)
}

// newApp loads the registry and wires the shared collaborators. Config
// failures are critical: the process must exit 2 without touching the
// network.
func newApp() (*app, error) {
	registry, err := config.Load(flagConnect)
	if err != nil {
		return nil, err
	}

	tools := common.NewToolLocator()
	prompter := prompt.Prompter(prompt.Terminal{})
	store := tempbackup.NewStore("")

	a := &app{
		registry: registry,
		tools:    tools,
		prompter: prompter,
		store:    store,
		pipeline: &safety.Pipeline{Store: store, Tools: tools},
		adapter: &adapter.Adapter{
			Registry: registry,
			Tools:    tools,
			Prompter: prompter,
		},
	}
	a.stopEviction = store.StartEvictionTimer()
	return a, nil
}

func (a *app) close() {
	if a.stopEviction != nil {
		a.stopEviction()
	}
}

// commandContext returns a context cancelled by SIGINT/SIGTERM so scoped
// cleanups (handle close, shadow drop) run before exit. Temp backups
// deliberately survive interruption.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runWithApp wires the boilerplate shared by every command needing the
// registry: build the app, run the body, record the exit code.
func runWithApp(body func(ctx context.Context, a *app) int) {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		logging.ReportError(err)
		exitCode = adapter.ExitCritical
		return
	}
	defer a.close()

	exitCode = body(ctx, a)
}

// typeHint converts the --type flag into a backend filter.
func typeHint() config.Backend {
	switch flagType {
	case "postgres":
		return config.BackendPostgres
	case "mongodb":
		return config.BackendMongoDB
	}
	return ""
}
