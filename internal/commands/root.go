package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"jobfeed/internal/config"
	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/logger"
	"jobfeed/internal/service"
	"jobfeed/internal/storage"
)

// PipelineName identifies the Vantaa pipeline in the run log.
const PipelineName = "vantaa"

// cli carries state shared by all subcommands of one invocation.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *zap.SugaredLogger
}

// NewRootCmd builds the jobfeed command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "jobfeed",
		Short: "jobfeed - fetch, validate and store open job applications",
		Long: `jobfeed fetches the City of Vantaa open job applications feed, validates
every record, renames fields to the table layout, and stores the batch in one
transaction.

Examples:
  jobfeed init-db                 # Create the destination table
  jobfeed run                     # Run the pipeline once
  jobfeed schedule                # Run on schedule.cron until interrupted
  jobfeed runs --limit 5          # Show recent runs`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.setup(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "Path to a TOML config file (default ./"+config.DefaultConfigName+")")
	pf.Bool("json-log", false, "Write logs as JSON")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("database-url", "", "Destination connection descriptor (overrides database.url)")
	pf.String("source-url", "", "Feed URL (overrides source.url)")

	root.AddCommand(
		newRunCmd(c),
		newScheduleCmd(c),
		newInitDBCmd(c),
		newRunsCmd(c),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree with args (os.Args[1:] when nil).
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	return root.ExecuteContext(ctx)
}

func (c *cli) setup(flags *pflag.FlagSet) error {
	bound := map[string]*pflag.Flag{
		"log.json":  flags.Lookup("json-log"),
		"log.level": flags.Lookup("log-level"),
	}
	// Empty-valued overrides would mask the config file, so only bind them when set.
	for key, name := range map[string]string{"database.url": "database-url", "source.url": "source-url"} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			bound[key] = f
		}
	}

	cfg, err := config.Load(c.configPath, bound)
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return errors.Wrap(err, "initialize logger")
	}
	c.cfg = cfg
	c.log = logger.ComponentLogger("jobfeed")
	return nil
}

// openService validates the configuration and builds the pipeline service
// with its run log. The returned closer releases the state database.
func (c *cli) openService(inputFile string) (*service.PipelineService, func(), error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	state, err := c.openState()
	if err != nil {
		return nil, nil, err
	}

	factory := service.VantaaFactory(service.VantaaOptions{
		SourceURL:  c.cfg.Source.URL,
		Timeout:    c.cfg.Source.Timeout(),
		Descriptor: c.cfg.Database.URL,
		Table:      c.cfg.Database.Table,
		InputFile:  inputFile,
	}, c.log)
	svc := service.NewPipelineService(PipelineName, factory, storage.NewRunLogStore(state), nil, c.log.Named("service"))
	return svc, func() { state.Close() }, nil
}

// openRunLog opens only the local run log. It needs no destination
// settings, so the configuration is not validated.
func (c *cli) openRunLog() (*storage.RunLogStore, func(), error) {
	state, err := c.openState()
	if err != nil {
		return nil, nil, err
	}
	return storage.NewRunLogStore(state), func() { state.Close() }, nil
}

func (c *cli) openState() (*storage.DB, error) {
	state, err := storage.New(c.cfg.State.Path)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "open state database"), "check state.path")
	}
	return state, nil
}

// FormatError renders err as a multi-line diagnostic naming the failing
// stage, the failure kind and any hints.
func FormatError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %v\n", err)
	if kind := etl.Kind(err); kind != "" {
		fmt.Fprintf(&b, "  kind: %s\n", kind)
	}
	for _, hint := range strings.Split(errors.FlattenHints(err), "\n") {
		if hint = strings.TrimSpace(hint); hint != "" && !strings.HasPrefix(hint, "--") {
			fmt.Fprintf(&b, "  hint: %s\n", hint)
		}
	}
	return b.String()
}
