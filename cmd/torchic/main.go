// Package main provides the torchic CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/torchic/backend/webgpu"
	"github.com/born-ml/torchic/internal/reference"
	"github.com/born-ml/torchic/tensor"
)

const version = "v0.0.1-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "torchic: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	opsPath     string
	logLevel    string
	timeout     time.Duration
	size        int
	parallel    int
	metricsAddr string
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "torchic %s\n", version)
		return nil
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	case "ops", "matmul", "bench":
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := parseFlags(cmd, rest)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.logLevel, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd {
	case "ops":
		return runOps(cfg, logger, stdout)
	case "matmul":
		return runMatMul(cfg, logger, stdout)
	default:
		return runBench(ctx, cfg, logger, stdout)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "torchic - float32 tensor compute on WebGPU")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  ops        List the registered operations")
	fmt.Fprintln(w, "  matmul     Multiply a 4x2 by a 2x3 matrix on the GPU")
	fmt.Fprintln(w, "  bench      Compare sqrt(sin(x)) on the GPU and the CPU")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'torchic <command> -h' for command flags.")
}

func parseFlags(cmd string, args []string) (config, error) {
	cfg := config{}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVar(&cfg.opsPath, "ops", os.Getenv("TORCHIC_OPS"),
		"YAML operation table layered over the built-in one (env TORCHIC_OPS)")
	fs.StringVar(&cfg.logLevel, "log-level", envOr("TORCHIC_LOG_LEVEL", "info"),
		"trace, debug, info, warn or error (env TORCHIC_LOG_LEVEL)")
	fs.DurationVar(&cfg.timeout, "timeout", webgpu.DefaultReadbackTimeout, "readback timeout")
	if cmd == "bench" {
		fs.IntVar(&cfg.size, "n", 4_000_000, "number of elements")
		fs.IntVar(&cfg.parallel, "parallel", 1, "concurrent GPU pipelines")
		fs.StringVar(&cfg.metricsAddr, "metrics-addr", "",
			"serve Prometheus metrics on this address after the run, until interrupted")
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.size < 0 || cfg.parallel < 0 {
		return cfg, errors.New("-n and -parallel must not be negative")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newLogger(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

func loadTables(path string) (webgpu.Tables, error) {
	if path == "" {
		return webgpu.DefaultTables(), nil
	}
	return webgpu.LoadTables(path)
}

// open acquires a backend and compiles the operation tables.
func open(cfg config, logger zerolog.Logger, reg prometheus.Registerer) (*webgpu.Backend, *webgpu.Registry, error) {
	tables, err := loadTables(cfg.opsPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []webgpu.Option{
		webgpu.WithLogger(logger),
		webgpu.WithReadbackTimeout(cfg.timeout),
	}
	if reg != nil {
		opts = append(opts, webgpu.WithRegisterer(reg))
	}
	gpu, err := webgpu.New(opts...)
	if err != nil {
		return nil, nil, err
	}

	ops, err := webgpu.NewRegistry(gpu, tables)
	if err != nil {
		gpu.Release()
		return nil, nil, err
	}
	return gpu, ops, nil
}

func runOps(cfg config, logger zerolog.Logger, stdout io.Writer) error {
	gpu, ops, err := open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer gpu.Release()
	defer ops.Release()

	fmt.Fprintf(stdout, "device: %s\n", gpu.Name())
	for _, family := range []webgpu.Family{webgpu.FamilyUnary, webgpu.FamilyBinary, webgpu.FamilyMatMul} {
		fmt.Fprintf(stdout, "%s: %s\n", family, strings.Join(ops.Names(family), " "))
	}
	return nil
}

func runMatMul(cfg config, logger zerolog.Logger, stdout io.Writer) error {
	gpu, ops, err := open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer gpu.Release()
	defer ops.Release()

	a, err := gpu.FromHost([]float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{4, 2})
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := gpu.FromHost([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	if err != nil {
		return err
	}
	defer b.Release()

	c, err := webgpu.MatMul(gpu, ops, a, b)
	if err != nil {
		return err
	}
	defer c.Release()

	data, err := gpu.Read(c)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%v: %v\n", c.Shape(), data)
	return nil
}

func runBench(ctx context.Context, cfg config, logger zerolog.Logger, stdout io.Writer) error {
	promReg := prometheus.NewRegistry()
	gpu, ops, err := open(cfg, logger, promReg)
	if err != nil {
		return err
	}
	defer gpu.Release()
	defer ops.Release()

	input := make([]float32, cfg.size)
	for i := range input {
		input[i] = float32(i)
	}

	start := time.Now()
	cpu := reference.Map(input, func(v float32) float32 {
		return float32(math.Sqrt(math.Sin(float64(v))))
	})
	cpuElapsed := time.Since(start)

	start = time.Now()
	results := make([][]float32, max(cfg.parallel, 1))
	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := sinSqrt(gpu, ops, input)
			results[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	gpuElapsed := time.Since(start)

	head := min(10, cfg.size)
	fmt.Fprintf(stdout, "cpu: %v in %v\n", cpu[:head], cpuElapsed)
	fmt.Fprintf(stdout, "gpu: %v in %v (%d pipelines)\n", results[0][:head], gpuElapsed, len(results))

	mismatches := 0
	for _, out := range results {
		for i := range out {
			if !closeEnough(out[i], cpu[i]) {
				mismatches++
			}
		}
	}
	logger.Info().
		Int("elements", cfg.size).
		Int("mismatches", mismatches).
		Interface("staging", gpu.StagingStats()).
		Msg("bench complete")

	if cfg.metricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, cfg.metricsAddr, promReg, logger)
}

// sinSqrt runs sqrt(sin(x)) as two dispatches and reads the result back.
func sinSqrt(gpu *webgpu.Backend, ops *webgpu.Registry, input []float32) ([]float32, error) {
	x, err := gpu.FromHost(input, tensor.Shape{len(input)})
	if err != nil {
		return nil, err
	}
	defer x.Release()

	s, err := webgpu.Unary(gpu, ops, "sin", x)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	r, err := webgpu.Unary(gpu, ops, "sqrt", s)
	if err != nil {
		return nil, err
	}
	defer r.Release()

	return gpu.Read(r)
}

// closeEnough compares GPU and CPU results, treating NaN as equal to NaN.
// WGSL builtins are not correctly rounded, so a small tolerance applies.
func closeEnough(a, b float32) bool {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.IsNaN(float64(a)) && math.IsNaN(float64(b))
	}
	return math.Abs(float64(a-b)) <= 1e-3
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info().Str("addr", addr).Msg("serving metrics, interrupt to exit")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
