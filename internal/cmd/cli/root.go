package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	cfgpkg "github.com/tvanderstad/parasol-db/internal/config"
	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/runtime"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// app carries the state resolved by the root command's pre-run hook.
type app struct {
	cfg    cfgpkg.Config
	logger logpkg.Logger
	// logOut overrides the log destination; tests set it to io.Discard.
	logOut io.Writer
}

// NewRoot constructs the `parasol` root command and registers every
// subcommand.
func NewRoot() *cobra.Command {
	return newRoot(nil)
}

func newRoot(logOut io.Writer) *cobra.Command {
	a := &app{logOut: logOut}
	root := &cobra.Command{
		Use:           "parasol",
		Short:         "Parasol temporal key/value store",
		Long:          "Parasol keeps an append-only command log per table and answers key/value queries as of any sequence number.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "Config file (JSON, or YAML by extension)")
	root.PersistentFlags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	root.PersistentFlags().StringP("table", "t", "", "Table name (default from config, usually \"default\")")
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "", "Log format: text|json")

	root.AddCommand(
		newPutCommand(a),
		newDelCommand(a),
		newClearCommand(a),
		newApplyCommand(a),
		newGetCommand(a),
		newStateCommand(a),
		newScanCommand(a),
		newVerifyCommand(a),
		newTablesCommand(a),
		newMergeCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newServeCommand(a),
	)
	return root
}

// init loads config from file, environment and flags, in that order of
// precedence, and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return err
	}
	cfgpkg.FromEnv(&cfg)
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logOut != nil {
		a.logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NewWriterOutput(a.logOut)))
	} else if a.logger, err = logpkg.ApplyConfig(&cfg.Log); err != nil {
		return err
	}
	// Pebble writes through the standard library logger.
	logpkg.RedirectStdLog(a.logger)
	return nil
}

func (a *app) tableName(cmd *cobra.Command) string {
	if v, _ := cmd.Flags().GetString("table"); v != "" {
		return v
	}
	return a.cfg.DefaultTableName
}

func (a *app) withRuntime(fn func(*runtime.Runtime) error) (err error) {
	rt, err := runtime.Open(runtime.Options{Config: a.cfg, Logger: a.logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}

func (a *app) withStore(cmd *cobra.Command, fn func(*kv.Store) error) error {
	return a.withRuntime(func(rt *runtime.Runtime) error {
		s, err := rt.OpenKV(a.tableName(cmd))
		if err != nil {
			return fmt.Errorf("open table: %w", err)
		}
		return fn(s)
	})
}
