package main

import (
	"context"
	"errors"
	"os"
	"sync"

	"ccee-sentinel/internal/bootstrap"
	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commandContext builds the service graph once, on first use.
type commandContext struct {
	once sync.Once
	app  *bootstrap.App
	err  error
}

func (c *commandContext) ensureApp(ctx context.Context) (*bootstrap.App, error) {
	c.once.Do(func() {
		if c.app != nil {
			return
		}
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			c.err = err
			return
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			c.err = err
			return
		}
		if err := logger.Initialize(cfg.Logger); err != nil {
			c.err = err
			return
		}
		c.app, c.err = bootstrap.New(ctx, cfg, logger.Get())
	})
	return c.app, c.err
}

// run hands the service graph to fn and persists the cache snapshot afterwards, also when fn
// failed part way.
func (c *commandContext) run(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := c.ensureApp(ctx)
	if err != nil {
		return err
	}
	runErr := fn(app)
	// Persist even when ctx was cancelled.
	if err := c.close(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (c *commandContext) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	defer logger.Sync()
	if err := c.app.Close(ctx); err != nil {
		return err
	}
	logger.Get().Info("Cache snapshot persisted", zap.Any("entries", c.app.Store.Stats("")))
	return nil
}

// newRootCommand builds the CLI. A non-nil app skips configuration loading.
func newRootCommand(app *bootstrap.App) *cobra.Command {
	ctx := &commandContext{app: app}

	rootCmd := &cobra.Command{
		Use:           "pregen",
		Short:         "Pre-generate study content and persist it to the cache snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newModulesCommand(ctx))
	rootCmd.AddCommand(newFlashcardsCommand(ctx))
	rootCmd.AddCommand(newNotesCommand(ctx))
	rootCmd.AddCommand(newQuestionsCommand(ctx))
	rootCmd.AddCommand(newExamCommand(ctx))

	return rootCmd
}
