package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/triggerfish/internal/stress"
	"github.com/wippyai/triggerfish/ref"
)

func main() {
	def := stress.Default()
	var (
		cells       = flag.Int("cells", def.Cells, "Number of shared reference cells")
		owners      = flag.Int("owners", def.Owners, "Goroutines holding strong references")
		watchers    = flag.Int("watchers", def.Watchers, "Goroutines holding weak references")
		iterations  = flag.Int("iterations", def.Iterations, "Operations per goroutine")
		weakLimit   = flag.Int("weak-limit", 0, "Cap on weak references per cell (0 = unbounded)")
		logMode     = flag.String("log", "none", "Logging: none, dev or prod")
		wasmFile    = flag.String("wasm", "", "Share one instance of this core module between owners")
		funcName    = flag.String("func", "", "Exported function to call with -wasm")
		interactive = flag.Bool("i", term.IsTerminal(int(os.Stdout.Fd())), "Interactive mode with TUI")
	)
	flag.Parse()

	logger, err := newLogger(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	ref.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *wasmFile != "" {
		if *funcName == "" {
			fmt.Fprintln(os.Stderr, "Usage: refstress -wasm <module.wasm> -func <name> [-owners n] [-iterations n]")
			os.Exit(1)
		}
		if err := runWasm(ctx, *wasmFile, *funcName, *owners, *iterations); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := def
	cfg.Cells = *cells
	cfg.Owners = *owners
	cfg.Watchers = *watchers
	cfg.Iterations = *iterations
	cfg.WeakLimit = *weakLimit
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	switch mode {
	case "", "none":
		return zap.NewNop(), nil
	case "dev":
		return zap.NewDevelopment()
	case "prod":
		return zap.NewProduction()
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
}

func run(ctx context.Context, cfg stress.Config) error {
	fmt.Printf("Cells: %d  Owners: %d  Watchers: %d  Iterations: %d\n",
		cfg.Cells, cfg.Owners, cfg.Watchers, cfg.Iterations)
	if cfg.WeakLimit > 0 {
		fmt.Printf("Weak limit: %d per cell\n", cfg.WeakLimit)
	}

	stats, err := stress.Run(ctx, cfg, nil)
	printStats(stats)
	if err != nil {
		return fmt.Errorf("stress run: %w", err)
	}
	fmt.Println("\nOK: every cell destroyed exactly once")
	return nil
}

func printStats(s stress.Stats) {
	fmt.Printf("\nRetains:         %d\n", s.Retains)
	fmt.Printf("Releases:        %d\n", s.Releases)
	fmt.Printf("Upgrades:        %d\n", s.Upgrades)
	fmt.Printf("Failed upgrades: %d\n", s.FailedUpgrades)
	fmt.Printf("Copies:          %d (%d dead)\n", s.Copies, s.DeadCopies)
	fmt.Printf("Destroyed:       %d/%d\n", s.Destroyed, s.Cells)
	fmt.Printf("Violations:      %d\n", s.Violations)
	fmt.Printf("Duration:        %s\n", s.Duration)
}
