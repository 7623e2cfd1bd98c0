package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lguibr/gonwayish/field"
	"github.com/lguibr/gonwayish/render"
	"github.com/lguibr/gonwayish/telemetry"
	"github.com/lguibr/gonwayish/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCommand(opts *options) *cobra.Command {
	var (
		duration time.Duration
		color    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the field and draw it in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runTerminal(cmd.Context(), cfg, logger, cmd.OutOrStdout(), duration, color)
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long, 0 runs until interrupted")
	cmd.Flags().BoolVar(&color, "color", true, "tint live cells by age on a terminal")
	return cmd
}

func runTerminal(ctx context.Context, cfg utils.Config, logger *slog.Logger, out io.Writer, duration time.Duration, color bool) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	f, torus, err := startField(cfg, logger)
	if err != nil {
		return err
	}

	renderOpts := render.Options{
		Width:      torus.Width(),
		Height:     torus.Height(),
		LifePeriod: cfg.LifePeriod,
	}
	if file, ok := out.(*os.File); ok && render.IsTerminal(file.Fd()) {
		renderOpts.Color = color
		renderOpts.Clear = render.ClearScreen
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return render.Loop(gctx, f, out, cfg.RenderInterval, renderOpts)
	})
	g.Go(func() error {
		return runSampler(gctx, cfg, f, logger)
	})

	runErr := g.Wait()
	if err := stopField(f, cfg, logger); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// runSampler records population samples to cfg.StatsFile until ctx is done.
// It returns at once when no stats file is configured.
func runSampler(ctx context.Context, cfg utils.Config, f *field.Field, logger *slog.Logger) error {
	if cfg.StatsFile == "" {
		return nil
	}
	file, err := os.Create(cfg.StatsFile)
	if err != nil {
		return fmt.Errorf("creating stats file: %w", err)
	}
	defer file.Close()

	logger.Info("sampling population", "file", cfg.StatsFile, "interval", cfg.StatsInterval)
	return telemetry.NewSampler(f, file, cfg.StatsInterval, logger).Run(ctx)
}
