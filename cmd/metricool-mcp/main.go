// metricool-mcp serves read-only Metricool analytics queries as MCP tools.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/matiasleandrokruk/metricool-mcp/internal/domain/audit"
	"github.com/matiasleandrokruk/metricool-mcp/internal/domain/tool"
	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/config"
	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/eventbus"
	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/metricool"
	"github.com/matiasleandrokruk/metricool-mcp/internal/server"
	"github.com/matiasleandrokruk/metricool-mcp/internal/version"
	pkgauth "github.com/matiasleandrokruk/metricool-mcp/pkg/auth"
)

// rateLimitBurst lets a client fan out a handful of tool calls at once.
const rateLimitBurst = 5

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	switch cmd {
	case "serve":
		return runServe(config.Load())
	case "tools":
		return runTools(out)
	case "token":
		return runToken(rest, config.Load(), out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd) //nolint:errcheck
		printHelp(os.Stderr)
		return 2
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	// stdout belongs to the stdio transport.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func runServe(cfg config.Config) int {
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	catalog, err := tool.LoadCatalog()
	if err != nil {
		logger.Error("failed to load tool catalog", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()
	defer bus.Close()
	go audit.NewSubscriber(logger).Start(ctx, bus)

	creds := cfg.Credentials()
	client := metricool.NewClient(creds,
		metricool.WithLogger(logger),
		metricool.WithRateLimit(cfg.RateLimit, rateLimitBurst),
	)
	dispatcher := tool.NewDispatcher(catalog, client, creds, cfg.BaseURL, bus)

	srv := server.New(server.ConfigFrom(cfg), server.NewMCPServer(dispatcher, logger), logger)

	logger.Info("starting", "version", version.Version, "tools", catalog.Len(), "transport", cfg.Transport)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

func runTools(out io.Writer) int {
	catalog, err := tool.LoadCatalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load tool catalog: %v\n", err) //nolint:errcheck
		return 1
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range catalog.List() {
		fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description) //nolint:errcheck
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func runToken(args []string, cfg config.Config, out io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	subject := fs.String("subject", "", "Token subject (client name)")
	ttl := fs.Duration("ttl", pkgauth.DefaultTTL, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	token, err := pkgauth.GenerateToken([]byte(cfg.JWTSecret), *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot mint token (is MCP_JWT_SECRET set?): %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintln(out, token) //nolint:errcheck
	return 0
}

func printHelp(out io.Writer) {
	helpText := `metricool-mcp - Metricool analytics over the Model Context Protocol

Usage:
  metricool-mcp [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the MCP server (default)
  tools        List the tool catalog
  token        Mint a bearer token for the http transport

Environment:
  METRICOOL_USER_TOKEN   API token sent as X-Mc-Auth (required)
  METRICOOL_USER_ID      Numeric Metricool user id (required)
  METRICOOL_BASE_URL     API base URL (default ` + config.DefaultBaseURL + `)
  METRICOOL_RATE_LIMIT   Max outbound requests per minute (default 0, unlimited)
  MCP_TRANSPORT          stdio or http (default stdio)
  MCP_HTTP_ADDR          Listen address for http (default ` + config.DefaultHTTPAddr + `)
  MCP_JWT_SECRET         Enables bearer auth on the http transport
  LOG_LEVEL              debug, info, warn or error (default info)

Examples:
  metricool-mcp --version
  MCP_TRANSPORT=http metricool-mcp serve
  metricool-mcp token --subject inspector --ttl 12h`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
