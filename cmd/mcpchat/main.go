package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/effective-security/mcphub/encoding"
	"github.com/effective-security/mcphub/mcp"
	"github.com/effective-security/mcphub/orchestrator"
	"github.com/effective-security/mcphub/pkg/llmfactory"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "mcpchat")

var version = "0.1.0"

type flags struct {
	llmConfig  string
	servers    string
	provider   string
	model      string
	output     string
	transcript string
	envFile    string
	maxRounds  int
	timeout    time.Duration
	verbose    bool
	debug      bool
}

func main() {
	f := new(flags)

	rootCmd := &cobra.Command{
		Use:   "mcpchat [query]",
		Short: "Chat with an LLM using the tools of MCP servers",
		Long: `mcpchat connects to the configured MCP tool servers, presents their tools
to the LLM and runs the tool calls the model requests until it answers.
Without a query argument it starts an interactive chat.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	fl := rootCmd.PersistentFlags()
	fl.StringVar(&f.llmConfig, "config", "llm.yaml", "LLM providers config file")
	fl.StringVar(&f.servers, "servers", "mcp_config.json", "MCP servers config file, JSON or YAML")
	fl.StringVar(&f.provider, "llm", "", "provider name or type, e.g. OPENAI, AZURE, BEDROCK (default is the default provider)")
	fl.StringVar(&f.model, "model", "", "model name to use")
	fl.StringVarP(&f.output, "output", "o", encoding.FormatDefault, "output format: "+strings.Join(encoding.Formats(), ", "))
	fl.StringVar(&f.transcript, "transcript", "", "file to append the transcripts of the runs")
	fl.StringVar(&f.envFile, "env", ".env", "file with the environment variables")
	fl.IntVar(&f.maxRounds, "max-rounds", orchestrator.DefaultMaxRounds, "the limit of tool rounds per query")
	fl.DurationVar(&f.timeout, "timeout", orchestrator.DefaultRequestTimeout, "timeout of the LLM requests")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print the LLM calls and the tool calls")
	fl.BoolVarP(&f.debug, "debug", "D", false, "enable debug logs")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpchat version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f *flags, args []string) error {
	xlog.SetFormatter(xlog.NewStringFormatter(cmd.ErrOrStderr()))
	if f.debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}

	if err := godotenv.Load(f.envFile); err != nil {
		logger.KV(xlog.DEBUG, "status", "env_not_loaded", "file", f.envFile, "err", err.Error())
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	llm, err := loadLLM(f)
	if err != nil {
		return err
	}

	servers, err := mcp.LoadServers(f.servers)
	if err != nil {
		return err
	}

	pool := mcp.NewPool(mcp.WithClientInfo("mcpchat", version))
	defer func() {
		if err := pool.CloseAll(); err != nil {
			logger.KV(xlog.WARNING, "status", "close_servers", "err", err.Error())
		}
	}()

	if err = pool.ConnectAll(ctx, servers); err != nil {
		// the servers that connected stay usable
		fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %s\n", err.Error())
	}

	c, err := newChat(llm, pool, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close()

	if len(args) > 0 {
		return c.Ask(ctx, strings.Join(args, " "))
	}
	return c.Loop(ctx, cmd.InOrStdin())
}

func loadLLM(f *flags) (llms.Model, error) {
	factory, err := llmfactory.Load(f.llmConfig)
	if err != nil {
		return nil, err
	}
	switch {
	case f.provider != "":
		return factory.ModelByType(f.provider)
	case f.model != "":
		return factory.ModelByName(f.model)
	default:
		return factory.DefaultModel()
	}
}
