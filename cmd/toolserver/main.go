package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/tools"
	"github.com/effective-security/mcphub/tools/songs"
	"github.com/effective-security/mcphub/tools/websearch"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "toolserver")

var version = "0.1.0"

const (
	transportStdio      = "stdio"
	transportSSE        = "sse"
	transportStreamable = "streamable"
)

type flags struct {
	transport string
	listen    string
	envFile   string
	debug     bool
}

func main() {
	f := new(flags)

	rootCmd := &cobra.Command{
		Use:   "toolserver",
		Short: "MCP server with example tools",
		Long: `toolserver serves the top_song tool, and the web_search tool
when TAVILY_API_KEY is set, over stdio or HTTP.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, f)
		},
	}

	fl := rootCmd.Flags()
	fl.StringVarP(&f.transport, "transport", "t", transportStdio, "transport: stdio, sse or streamable")
	fl.StringVar(&f.listen, "listen", "127.0.0.1:8080", "listen address of the HTTP transports")
	fl.StringVar(&f.envFile, "env", ".env", "file with the environment variables")
	fl.BoolVarP(&f.debug, "debug", "D", false, "enable debug logs")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, f *flags) error {
	// stdout carries the protocol for stdio
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if f.debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.INFO)
	}
	_ = godotenv.Load(f.envFile)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := newServer()
	if err != nil {
		return err
	}

	switch f.transport {
	case transportStdio:
		logger.KV(xlog.INFO, "status", "serving", "transport", f.transport)
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	case transportSSE, transportStreamable:
		return listenAndServe(ctx, f.listen, newHandler(server, f.transport))
	default:
		return errors.Newf("unsupported transport: %q", f.transport)
	}
}

// newServer returns the server with the tools enabled by the environment.
func newServer() (*sdkmcp.Server, error) {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "toolserver",
		Version: version,
	}, nil)

	list := []tools.ITool{songs.New()}
	if search, err := websearch.New(); err == nil {
		list = append(list, search)
	} else {
		logger.KV(xlog.INFO, "status", "tool_disabled", "tool", websearch.ToolName, "reason", err.Error())
	}

	if err := tools.Register(server, list...); err != nil {
		return nil, err
	}
	return server, nil
}

func newHandler(server *sdkmcp.Server, transport string) http.Handler {
	getServer := func(*http.Request) *sdkmcp.Server {
		return server
	}
	if transport == transportSSE {
		return sdkmcp.NewSSEHandler(getServer, nil)
	}
	return sdkmcp.NewStreamableHTTPHandler(getServer, nil)
}

func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.KV(xlog.INFO, "status", "serving", "addr", addr)
	fmt.Fprintf(os.Stderr, "listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to serve")
	}
	return nil
}
