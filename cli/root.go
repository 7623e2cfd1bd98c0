// Package cli wires the field, its consumers and the configuration into the
// gonwayish command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lguibr/gonwayish/field"
	"github.com/lguibr/gonwayish/geometry"
	"github.com/lguibr/gonwayish/seed"
	"github.com/lguibr/gonwayish/utils"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	configPath string
	width      int
	height     int
	pattern    string
	file       string
	seed       int64
	density    float64
	logLevel   string
}

// NewRootCommand builds the gonwayish command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	defaults := utils.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "gonwayish",
		Short: "An asynchronous Game of Life where every cell is its own actor",
		Long: `gonwayish runs a toroidal cellular automaton in continuous time.
Each cell lives on its own goroutine, locks its neighborhood without ever
blocking, is born with exactly three live neighbors and dies of old age.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file overlaid on the defaults")
	flags.IntVar(&opts.width, "width", defaults.Width, "grid width in cells")
	flags.IntVar(&opts.height, "height", defaults.Height, "grid height in cells")
	flags.StringVarP(&opts.pattern, "pattern", "p", "", fmt.Sprintf("named initial pattern %v", seed.Names()))
	flags.StringVar(&opts.file, "pattern-file", "", "plaintext .cells file for the initial pattern")
	flags.Int64Var(&opts.seed, "seed", defaults.Seed, "seed for the random initial state")
	flags.Float64Var(&opts.density, "density", defaults.Density, "chance of a cell starting alive")
	flags.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "debug, info, warn or error")

	rootCmd.AddCommand(newRunCommand(opts), newServeCommand(opts), newWatchCommand(opts))
	return rootCmd
}

// Execute runs the command line until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads the config file and applies the flags the user actually set.
func (o *options) loadConfig(cmd *cobra.Command) (utils.Config, error) {
	cfg, err := utils.LoadConfig(o.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Width = o.width
	}
	if flags.Changed("height") {
		cfg.Height = o.height
	}
	if flags.Changed("pattern") {
		cfg.Pattern = o.pattern
	}
	if flags.Changed("pattern-file") {
		cfg.PatternFile = o.file
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("density") {
		cfg.Density = o.density
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg utils.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := utils.NewLogger(w, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// initialState picks the starting cells: a pattern file wins over a named
// pattern, which wins over a random soup.
func initialState(cfg utils.Config, torus *geometry.Torus) (seed.Func, error) {
	switch {
	case cfg.PatternFile != "":
		f, err := os.Open(cfg.PatternFile)
		if err != nil {
			return nil, fmt.Errorf("opening pattern file: %w", err)
		}
		defer f.Close()
		cells, err := seed.ParsePlaintext(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.PatternFile, err)
		}
		return seed.Centered(cells, torus)
	case cfg.Pattern != "":
		return seed.Pattern(cfg.Pattern, torus)
	default:
		return seed.Random(cfg.Seed, cfg.Density), nil
	}
}

// startField builds a field from cfg and starts it with the configured initial state.
func startField(cfg utils.Config, logger *slog.Logger) (*field.Field, *geometry.Torus, error) {
	torus, err := geometry.NewTorus(cfg.Width, cfg.Height)
	if err != nil {
		return nil, nil, err
	}
	init, err := initialState(cfg, torus)
	if err != nil {
		return nil, nil, err
	}

	f := field.New(torus, cfg, field.WithLogger(logger))
	if err := f.Start(field.InitStateFunc(init)); err != nil {
		_ = f.Close(cfg.ShutdownTimeout)
		return nil, nil, err
	}
	return f, torus, nil
}

// stopField stops the cells and waits for them to exit.
func stopField(f *field.Field, cfg utils.Config, logger *slog.Logger) error {
	if err := f.Close(cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("stopping field: %w", err)
	}
	logger.Info("field closed", "alive", f.Snapshot().AliveCount())
	return nil
}
