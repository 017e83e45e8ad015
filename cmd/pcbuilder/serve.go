package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entrhq/pcbuilder/pkg/browser"
	"github.com/entrhq/pcbuilder/pkg/config"
	"github.com/entrhq/pcbuilder/pkg/llm/tokenizer"
	"github.com/entrhq/pcbuilder/pkg/logging"
	"github.com/entrhq/pcbuilder/pkg/server"
	"github.com/entrhq/pcbuilder/pkg/session"
	"github.com/entrhq/pcbuilder/pkg/telemetry"
)

func serveCmd() *cobra.Command {
	var (
		envFile     string
		skipInstall bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, skipInstall)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Env file to load instead of ./.env")
	cmd.Flags().BoolVar(&skipInstall, "skip-browser-install", false, "Do not download Playwright browsers on first launch")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, skipInstall bool) error {
	if parent == nil {
		parent = context.Background()
	}
	if cfg.LogDir != "" {
		logging.SetDirectory(cfg.LogDir)
	}
	logger := logging.MustLogger("main")
	defer logger.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TraceEnabled {
		dir, err := logging.GetLogDirectory()
		if err != nil {
			return fmt.Errorf("failed to resolve log directory: %w", err)
		}
		shutdown, err := telemetry.Init(ctx, telemetry.Options{
			Dir:            filepath.Join(dir, "telemetry"),
			ServiceVersion: version,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warnf("telemetry shutdown: %v", err)
			}
		}()
	}

	selectors, err := browser.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		return err
	}

	provider, err := config.BuildProvider(cfg)
	if err != nil {
		return err
	}
	logger.Infof("using %s model %s", cfg.LLMProvider, provider.GetModel())

	tok, err := tokenizer.New()
	if err != nil {
		logger.Warnf("token counts fall back to estimates: %v", err)
	}

	launcher := browser.NewPlaywrightLauncher(skipInstall)
	defer func() {
		if err := launcher.Stop(); err != nil {
			logger.Warnf("stopping playwright: %v", err)
		}
	}()

	browserOpts := browser.DefaultOptions()
	browserOpts.BaseURL = cfg.PCPartPickerURL
	browserOpts.Username = cfg.Username
	browserOpts.Password = cfg.Password
	browserOpts.Headless = cfg.BrowserHeadless
	browserOpts.Selectors = selectors
	browserOpts.RequestsPerMinute = cfg.BrowserRequestsPM

	coord := session.NewCoordinator(session.Options{
		Provider:  provider,
		Tokenizer: tok,
		NewPool: func() *browser.Pool {
			return browser.NewPool(launcher, browserOpts, logger.With("browser"))
		},
		QuestionTimeout: cfg.QuestionTimeout,
		ProposalTimeout: cfg.ProposalTimeout,
		Logger:          logger.With("session"),
	})

	srv := server.New(server.Options{
		Addr:        cfg.Addr(),
		StaticDir:   cfg.StaticDir,
		Coordinator: coord,
		Logger:      logger.With("server"),
	})

	fmt.Printf("Server running at http://localhost%s\n", cfg.Addr())
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	fmt.Println("Server closed")
	return nil
}
