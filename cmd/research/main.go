package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/agent/core"
	"github.com/mohammad-safakhou/researcher/internal/logging"
	"github.com/mohammad-safakhou/researcher/internal/report"
	"github.com/mohammad-safakhou/researcher/internal/server"
	"github.com/mohammad-safakhou/researcher/provider"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

// configError marks faults found before any stage runs.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context) int {
	root := &cobra.Command{
		Use:           "research",
		Short:         "Research a topic: discover sources, summarize and compare them",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var cfgErr configError
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return exitFailure
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadConfig(os.Getenv("RESEARCH_CONFIG_FILE"))
	if err != nil {
		return configError{err}
	}
	logger, err := logging.New(cfg.General.LogLevel, cfg.General.Debug)
	if err != nil {
		return configError{err}
	}
	defer func() { _ = logger.Sync() }()

	logger.Named("main").Info(fmt.Sprintf("API key loaded: %t", cfg.LLM.HasCredentials()),
		zap.String("provider", cfg.LLM.Provider))

	gen, err := provider.New(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		return configError{err}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orch, err := buildOrchestrator(ctx, cfg, gen, reg, logger)
	if err != nil {
		return configError{err}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsPort > 0 {
		stopMetrics := serveMetrics(ctx, server.New(cfg.Telemetry.MetricsPort, reg, logger.Named("metrics")), logger)
		defer stopMetrics()
	}

	topic, err := readTopic(in, out, cfg.General.DefaultTopic)
	if err != nil {
		return err
	}

	res, err := orch.RunResearch(ctx, topic)
	if err != nil {
		return fmt.Errorf("research %q: %w", topic, err)
	}

	body := res.Text()
	if res.Outcome == core.OutcomeCompleted {
		terminal := report.StdoutIsTerminal()
		body = report.Render(res.Report, report.Options{
			Markdown: cfg.Report.Render == "markdown",
			Terminal: terminal && out == os.Stdout,
			WordWrap: wordWrap(cfg.Report.WordWrap, terminal),
		})
	}
	_, err = fmt.Fprint(out, report.Block(body))
	return err
}

// readTopic prompts once; a blank line or EOF selects def.
func readTopic(in io.Reader, out io.Writer, def string) (string, error) {
	if _, err := fmt.Fprint(out, "Enter topic: "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read topic: %w", err)
	}
	if topic := strings.TrimSpace(line); topic != "" {
		return topic, nil
	}
	return def, nil
}

func wordWrap(configured int, terminal bool) int {
	if !terminal {
		return configured
	}
	if w := report.TerminalWidth(configured); w < configured {
		return w
	}
	return configured
}

type runner interface {
	Run(ctx context.Context) error
}

// serveMetrics runs srv in the background. The returned func cancels it and
// waits for shutdown to finish.
func serveMetrics(ctx context.Context, srv runner, logger *zap.Logger) func() {
	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(srvCtx); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
