package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/adapters/fs"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/acquisition"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/delivery"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/extractor"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/fetcher"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fetchctl",
		Short:         "Run URL acquisitions locally without the service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newAcquireCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newAcquireCommand() *cobra.Command {
	var (
		outDir    string
		sessionID string
		maxBytes  int64
		logLevel  string
		binary    string
	)

	cmd := &cobra.Command{
		Use:   "acquire <url>",
		Short: "Download a URL with the extractor, falling back to a direct transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider := observability.NewProvider(&observability.Config{
				ServiceName: "fetchctl",
				Environment: "local",
				LogLevel:    logLevel,
				LogOutput:   os.Stderr,
				Registerer:  prometheus.NewRegistry(),
			})
			defer provider.Close()

			acqCfg := config.DefaultAcquisitionConfig()
			if maxBytes > 0 {
				acqCfg.MaxDirectBytes = maxBytes
			}
			extCfg := config.DefaultExtractorConfig()
			if binary != "" {
				extCfg.Binary = binary
			}

			orchestrator := acquisition.New(
				acqCfg,
				extractor.New(extCfg, provider.Logger("extractor"), provider.Metrics("extractor")),
				fetcher.New(config.DefaultHTTPConfig(), acqCfg.ChunkSize, provider.Logger("fetcher"), provider.Metrics("fetcher")),
				provider.Logger("acquisition"),
				provider.Metrics("acquisition"),
				acquisition.WithProgress(func(_ context.Context, _ domain.AcquisitionRequest, stage domain.Stage) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s...\n", stage)
				}),
			)

			req, err := domain.NewAcquisitionRequest("", sessionID, args[0], domain.OriginMessage)
			if err != nil {
				return err
			}

			store, err := fs.NewStorage(outDir, provider.Logger("storage"), provider.Metrics("storage"))
			if err != nil {
				return err
			}
			deliverer := delivery.New(config.DefaultDeliveryConfig(), store, provider.Logger("delivery"), provider.Metrics("delivery"))

			result, err := orchestrator.Acquire(ctx, req, deliverer)
			if err != nil {
				return err
			}
			if !result.Succeeded() {
				for _, attempt := range result.Attempts {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", attempt)
				}
				return fmt.Errorf("acquisition failed: %s", result.Reason())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\t%s\n",
				result.Strategy, result.Receipt.Kind, result.SizeBytes, result.Receipt.Location)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Base directory files are stored under")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session identifier recorded on the request")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Direct transfer ceiling in bytes (default 80MiB)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")
	cmd.Flags().StringVar(&binary, "extractor", "", "Extraction tool binary (default yt-dlp)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fetchctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
