package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/pipeline"
	"github.com/forPelevin/vidscope/internal/watcher"
)

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Analyze every new video that appears in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args[0])
		},
	}
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, dir string) error {
	const op = "cli.runWatch"

	fi, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config: %w", apperr.NotFound(op, nil, "watch directory not found: "+dir))
		}
		return fmt.Errorf("config: %w", apperr.InvalidInput(op, err, "stat watch directory"))
	}
	if !fi.IsDir() {
		return fmt.Errorf("config: %w", apperr.InvalidInput(op, nil, "not a directory: "+dir))
	}
	// Reject bad flags and missing credentials before watching.
	req, err := a.pipelineConfig(cmd, "")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := req.ValidateRequest(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watcher.Config{
		Dir:           dir,
		MaxConcurrent: a.settings.Performance.MaxConcurrent,
		Log:           a.log,
	}, func(ctx context.Context, path string) error {
		cfg, err := a.pipelineConfig(cmd, path)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		res, err := pipeline.Run(runCtx, cfg)
		if err != nil {
			return err
		}
		a.log.WithField("run_dir", res.RunDir).Info("Report ready")
		return nil
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
