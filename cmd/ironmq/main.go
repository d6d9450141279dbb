package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samvad-hq/ironmq-go/internal/config"
	"github.com/samvad-hq/ironmq-go/internal/logger"
	"github.com/samvad-hq/ironmq-go/pkg/httpclient"
	"github.com/samvad-hq/ironmq-go/pkg/ironcore"
	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = mq.Version
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ironmq: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Close()

	return newRootCmd().ExecuteContext(ctx)
}

// globals are the persistent flags shared by every sub-command.
type globals struct {
	configFile string
	dotEnv     string
	project    string
	generation string
	debug      bool
	timeout    time.Duration

	appCfg *config.Config
	log    *logger.ZapLogger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "ironmq",
		Short: "Work with IronMQ queues from the command line",
		Long: `ironmq drives every IronMQ v3 operation: queues, messages, push subscribers
and alerts. It can also apply a queue manifest and forward a queue into
HTTP, SQS, SNS or Pub/Sub sinks.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "iron config file (json, yaml, toml or .env)")
	flags.StringVar(&g.dotEnv, "env-file", "", "dotenv file loaded before reading IRON_* variables")
	flags.StringVarP(&g.project, "project", "p", "", "project id, overrides every other source")
	flags.StringVar(&g.generation, "generation", "", "service generation for endpoint defaults (1 or 3)")
	flags.BoolVarP(&g.debug, "debug", "d", false, "log every request and response")
	flags.DurationVar(&g.timeout, "timeout", 0, "HTTP timeout (defaults to http_timeout_seconds)")

	rootCmd.AddCommand(
		newQueuesCmd(g),
		newMessagesCmd(g),
		newSubscribersCmd(g),
		newAlertsCmd(g),
		newPushStatusCmd(g),
		newApplyCmd(g),
		newForwardCmd(g),
		newVersionCmd(),
	)
	return rootCmd
}

func (g *globals) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if g.debug {
		cfg.LogLevel = "debug"
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	g.appCfg = cfg
	g.log = log
	return nil
}

// ironConfig resolves the connection settings from flags, environment and files.
func (g *globals) ironConfig() (*ironcore.Config, error) {
	genRaw := g.generation
	if genRaw == "" {
		genRaw = g.appCfg.Generation
	}
	gen, err := ironcore.ParseGeneration(genRaw)
	if err != nil {
		return nil, err
	}

	opts := []ironcore.LoadOption{ironcore.WithGeneration(gen)}
	if g.project != "" {
		opts = append(opts, ironcore.WithValues(map[string]any{ironcore.KeyProjectID: g.project}))
	}
	file := g.configFile
	if file == "" {
		file = g.appCfg.IronConfigFile
	}
	if file != "" {
		opts = append(opts, ironcore.WithFile(file))
	}
	if g.dotEnv != "" {
		opts = append(opts, ironcore.WithDotEnv(g.dotEnv))
	}
	return ironcore.Load(opts...)
}

// client builds an mq client. observer may be nil.
func (g *globals) client(observer httpclient.Observer) (*mq.Client, error) {
	cfg, err := g.ironConfig()
	if err != nil {
		return nil, err
	}

	timeout := g.timeout
	if timeout <= 0 {
		timeout = g.appCfg.HTTPTimeout
	}
	var transportOpts []httpclient.Option
	if observer != nil {
		transportOpts = append(transportOpts, httpclient.WithObserver(observer))
	}

	return mq.New(cfg,
		mq.WithTransport(httpclient.NewRestyClient(timeout, transportOpts...)),
		mq.WithLogger(g.log),
		mq.WithDebug(g.debug),
	)
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"version":    version,
				"commit":     gitCommit,
				"built":      buildTime,
				"user_agent": "ironmq-go/" + mq.Version,
			})
		},
	}
}
