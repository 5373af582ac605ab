// Command toolserver exposes the fetch and search tools over JSON-RPC so
// other agents, or a research run pointed at it with MCP_URL, can use them.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/logging"
	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/tools/mcp"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch"
	"github.com/mohammad-safakhou/researcher/tools/web_search"
)

func main() {
	var addr string
	var stdio bool
	root := &cobra.Command{
		Use:          "toolserver",
		Short:        "Serve fetch_url and web_search over JSON-RPC",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(os.Getenv("RESEARCH_CONFIG_FILE"))
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.General.LogLevel, cfg.General.Debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			tools, err := serverTools(cfg, logger)
			if err != nil {
				return err
			}
			srv := mcp.NewServer(tools...)
			srv.Logger = logger.Named("toolserver")
			if stdio {
				return srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
			}
			return serveHTTP(cmd.Context(), addr, srv, logger)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":10002", "listen address")
	root.Flags().BoolVar(&stdio, "stdio", false, "serve on stdin/stdout instead of HTTP")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func serverTools(cfg *config.Config, logger *zap.Logger) ([]llm.Tool, error) {
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Tool), web_fetch.Options{
		Timeout:   cfg.Fetch.ToolTimeout,
		MaxChars:  cfg.Fetch.ToolMaxChars,
		UserAgent: cfg.Fetch.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tool %q: %w", cfg.Fetch.Tool, err)
	}
	tools := []llm.Tool{web_fetch.FetchTool{Fetcher: fetcher}}

	provider := web_search.Provider(cfg.Search.Provider)
	key := cfg.Search.BraveAPIKey
	if provider == web_search.SerperProvider {
		key = cfg.Search.SerperAPIKey
	}
	searcher, err := web_search.NewWebSearcher(provider, key)
	if err != nil {
		logger.Info("web_search not served", zap.String("provider", string(provider)), zap.Error(err))
		return tools, nil
	}
	return append(tools, web_search.SearchTool{Searcher: searcher, MaxResults: cfg.Search.MaxResults}), nil
}

func serveHTTP(ctx context.Context, addr string, srv *mcp.Server, logger *zap.Logger) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/rpc", echo.WrapHandler(srv))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tool server listening", zap.String("addr", addr))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
