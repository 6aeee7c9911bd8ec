// Package cli builds the Cobra command tree for the OCR pool daemon:
// root + run (starts the gateway and pool) + status (a point-in-time
// snapshot via a short-lived HTTP client call), matching this codebase's
// existing run/status command shape.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/honygo/ocrpool/internal/config"
	"github.com/honygo/ocrpool/internal/gateway"
	"github.com/honygo/ocrpool/internal/history"
	"github.com/honygo/ocrpool/internal/instance"
	"github.com/honygo/ocrpool/internal/keyword"
	"github.com/honygo/ocrpool/internal/logging"
	"github.com/honygo/ocrpool/internal/metrics"
	"github.com/honygo/ocrpool/internal/pipeline"
	"github.com/honygo/ocrpool/internal/pool"
	"github.com/honygo/ocrpool/internal/portalloc"
	"github.com/honygo/ocrpool/internal/recognizer"
	"github.com/honygo/ocrpool/internal/scaling"
	"github.com/honygo/ocrpool/pkg/types"
)

var configFile string

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ocrpoold",
		Short: "ocrpoold: a dynamically-scaling OCR instance pool",
		Long: `ocrpoold runs a pool of OCR recognizer instances behind a
priority admission queue, an HTTP gateway, and a scaling controller
that grows and shrinks the pool under load.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	var host string
	var port int
	var minInstances int
	var maxInstances int
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the OCR pool gateway and scaling controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem(runFlags{
				host: host, port: port,
				minInstances: minInstances, maxInstances: maxInstances,
				debug: debug,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind the HTTP gateway to")
	cmd.Flags().IntVar(&port, "port", 8080, "port to bind the HTTP gateway to")
	cmd.Flags().IntVar(&minInstances, "min-instances", 0, "override min_instances from the config file (0 = use config)")
	cmd.Flags().IntVar(&maxInstances, "max-instances", 0, "override max_instances from the config file (0 = use config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug-level, console-formatted logging")

	return cmd
}

type runFlags struct {
	host         string
	port         int
	minInstances int
	maxInstances int
	debug        bool
}

// runSystem loads configuration, wires logging, the recognizer factory,
// the pipeline, the Pool Manager, the scaling controller, the metrics
// server, and the HTTP gateway, then blocks until SIGINT/SIGTERM.
func runSystem(flags runFlags) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.minInstances > 0 {
		cfg.MinInstances = flags.minInstances
	}
	if flags.maxInstances > 0 {
		cfg.MaxInstances = flags.maxInstances
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if root := os.Getenv("HONYGO_PROJECT_ROOT"); root != "" {
		for _, p := range []*string{&cfg.HistoryPath, &cfg.LogDir, &cfg.Model.StorageDirectory} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(root, *p)
			}
		}
	}

	log, err := logging.New(flags.debug, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting ocrpoold",
		zap.String("host", flags.host), zap.Int("port", flags.port),
		zap.Int("min_instances", cfg.MinInstances), zap.Int("max_instances", cfg.MaxInstances))

	var predictor history.Predictor
	if cfg.HistoryPath != "" {
		if store, err := history.NewStore(cfg.HistoryPath); err != nil {
			log.Warn("region history disabled", zap.Error(err))
		} else {
			predictor = store
		}
	}

	pipe := pipeline.New(pipeline.Config{
		ResizeMaxWidth:  cfg.Preprocess.ResizeMaxWidth,
		ResizeMaxHeight: cfg.Preprocess.ResizeMaxHeight,
		Denoise:         cfg.Preprocess.Denoise,
		Contrast:        cfg.Preprocess.Contrast,
		Binarize:        cfg.Preprocess.Binarize,
	}, keyword.New(keyword.DefaultOptions()), predictor)

	// The recognizer engine itself is an external collaborator the core
	// only consumes an interface for; recognizer.Fake stands in as the
	// only concrete implementation this repository ships.
	factory := instance.Factory(func(ctx context.Context, modelDir string, languages []string, gpuEnabled bool) (recognizer.Recognizer, error) {
		return &recognizer.Fake{}, nil
	})

	mgr := pool.NewManager(pool.Config{
		MinInstances: cfg.MinInstances,
		MaxInstances: cfg.MaxInstances,
		WorkerCount:  cfg.MaxWorkers,
		MaxQueueSize: cfg.MaxQueueSize,
		MaxRetries:   2,
	}, factory, portalloc.New(40000, cfg.MaxInstances*2), instance.Config{
		ModelDir:   cfg.Model.StorageDirectory,
		Languages:  cfg.Model.Languages,
		GPUEnabled: cfg.Model.GPUEnabled,
		Pipeline:   pipe,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.StartService(ctx); err != nil {
		log.Warn("one or more instances failed to start", zap.Error(err))
	}

	collector := metrics.NewCollector()
	go func() {
		if err := metrics.StartServer(cfg.MetricsPort); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	reportMetrics(collector, mgr)

	scalingCfg := types.ScalingConfig{
		MinInstances:       cfg.MinInstances,
		MaxInstances:       cfg.MaxInstances,
		QueueUpThreshold:   cfg.Scaling.QueueUpThreshold,
		LatencyUpThreshold: time.Duration(cfg.Scaling.LatencyUpThreshold) * time.Millisecond,
		CPUUpThreshold:     cfg.Scaling.CPUUpThreshold,
		CPUDownThreshold:   cfg.Scaling.CPUDownThreshold,
		IdleDownThreshold:  cfg.Scaling.IdleDownThreshold,
		CooldownSeconds:    cfg.Scaling.CooldownSeconds,
		Step:               cfg.Scaling.Step,
	}
	controller := scaling.New(scalingCfg, mgr, 10*time.Second, log)
	controller.Run()
	defer controller.Stop()

	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	srv := gateway.New(mgr, timeout, log)
	addr := fmt.Sprintf("%s:%d", flags.host, flags.port)
	httpServer := &http.Server{Addr: addr, Handler: srv}

	go func() {
		log.Info("gateway listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("gateway server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("received shutdown signal, stopping gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	return mgr.Shutdown(shutdownCtx)
}

// reportMetrics fires one snapshot into the collector's gauges at startup
// so /metrics is non-empty. Nothing in runSystem refreshes the gauges
// after this call.
func reportMetrics(c *metrics.Collector, mgr *pool.Manager) {
	status := mgr.GetStatus()
	c.UpdateQueueDepth(status.QueueDepthByPriority)
	c.UpdateInstanceStates(status.InstancesByStatus)
}

func buildStatusCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch a point-in-time pool status snapshot over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "gateway base address")
	return cmd
}

// showStatus performs a short-lived GET /status against a running
// ocrpoold gateway and pretty-prints the result.
func showStatus(addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach gateway at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string            `json:"status"`
		Data   types.PoolStatus `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to parse status response: %w", err)
	}

	fmt.Println("ocrpoold status")
	fmt.Printf("  total instances:      %d\n", payload.Data.TotalInstances)
	fmt.Printf("  total requests:       %d\n", payload.Data.TotalRequests)
	fmt.Printf("  successful requests:  %d\n", payload.Data.SuccessfulRequests)
	fmt.Printf("  failed requests:      %d\n", payload.Data.FailedRequests)
	fmt.Printf("  avg response time:    %s\n", payload.Data.AverageResponseTime)
	fmt.Printf("  p95 response time:    %s\n", payload.Data.P95ResponseTime)
	for status, count := range payload.Data.InstancesByStatus {
		fmt.Printf("  instances[%s]:       %d\n", status, count)
	}
	for prio, depth := range payload.Data.QueueDepthByPriority {
		fmt.Printf("  queue[%s]:           %d\n", prio, depth)
	}
	return nil
}
