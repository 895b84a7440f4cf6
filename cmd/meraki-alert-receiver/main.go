package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"meraki-alert-receiver/internal/config"
	"meraki-alert-receiver/internal/logging"
	"meraki-alert-receiver/internal/metrics"
	"meraki-alert-receiver/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "meraki-alert-receiver",
		Short: "Analyze Meraki webhook alerts with Bedrock and notify operators",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", envOrDefault("ENV_FILE", ".env"), "dotenv file to load before reading the environment")

	serve := newServeCmd()
	root.AddCommand(serve, newAnalyzeCmd(), newModelsCmd())
	root.RunE = serve.RunE

	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logging.Init(cfg.LogLevel)
			metrics.Register(prometheus.DefaultRegisterer)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}

			srv := server.New(p.analyzer, p.dispatcher, server.Options{
				Port:            cfg.Port,
				SharedSecret:    cfg.SharedSecret,
				QueueSize:       cfg.DispatchQueueSize,
				Workers:         cfg.DispatchWorkers,
				DispatchTimeout: cfg.DispatchTimeout,
				PrimaryModel:    p.analyzer.Primary(),
				FallbackModels:  p.analyzer.Fallbacks(),
				Candidates:      p.analyzer.Candidates(),
				RoutedModels:    p.registry.Models(),
			})
			srv.Start()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				if err != nil {
					slog.Error("server failed", "error", err)
				}
				srv.Close()
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down", "timeout", cfg.DispatchTimeout.String())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DispatchTimeout+5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown incomplete", "error", err)
				return err
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		file      string
		sendAlert bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one webhook payload through the analysis pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel)))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			p, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}

			srv := server.New(p.analyzer, p.dispatcher, server.Options{SharedSecret: cfg.SharedSecret})
			resp, msg, err := srv.Process(ctx, raw)
			if err != nil {
				return err
			}
			if sendAlert {
				for _, d := range p.dispatcher.Dispatch(ctx, msg) {
					if d.Error != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s notification failed: %s\n", d.Channel, d.Error)
					}
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "webhook payload file (- reads stdin)")
	cmd.Flags().BoolVar(&sendAlert, "notify", false, "send the result to the configured channels")

	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Print the model cascade and how each model is addressed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return describeModels(cmd.OutOrStdout(), cfg)
		},
	}
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		return nil, errors.New("--file is required")
	}
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return raw, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
