package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/billboard-charts/internal/app"
	"github.com/JakeFAU/billboard-charts/internal/config"
	"github.com/JakeFAU/billboard-charts/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const (
	appKey     appKeyType = "app"
	sessionKey appKeyType = "session"
)

// session keeps the App created by PersistentPreRunE so it can be closed after
// the command returns, including when RunE failed.
type session struct {
	app *app.App
}

func (s *session) close() {
	if s == nil || s.app == nil {
		return
	}
	s.app.Close()
	_ = s.app.Logger().Sync()
	s.app = nil
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfgFile string) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "billboard",
		Short: "Collects weekly Billboard Hot 100 and Billboard 200 rankings.",
		Long: `billboard keeps deduplicated, date-ordered stores of the weekly Billboard
Hot 100 and Billboard 200 charts, either by scraping the chart pages or by
downloading the pre-aggregated dataset.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if s, ok := cmd.Context().Value(sessionKey).(*session); ok {
				s.app = appInstance
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.billboard/config.yaml)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newUpdateCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// execute runs root and always releases the application services. Cobra skips
// post-run hooks when RunE fails.
func execute(ctx context.Context, root *cobra.Command) error {
	s := &session{}
	defer s.close()
	return root.ExecuteContext(context.WithValue(ctx, sessionKey, s))
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, newRootCmd()); err != nil {
		stop()
		zap.L().Fatal("command execution failed", zap.Error(err))
	}
}
