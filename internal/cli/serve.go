package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datasetmd/internal/blob"
	"datasetmd/internal/catalog"
	"datasetmd/internal/config"
	"datasetmd/internal/export"
	"datasetmd/internal/httpapi"
	"datasetmd/internal/infra/persistence"
	"datasetmd/internal/metrics"
	"datasetmd/internal/render"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API with the record store, artifact store and export worker
selected by DATASETMD_* environment variables (optionally read from a .env file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cmd.ErrOrStderr(), cfg.Level(), cfg.Format())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := newService(ctx, cfg, log)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				_ = svc.close(context.Background())
				return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
			}
			return svc.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Dotenv file to load (default .env when present)")
	return cmd
}

// service owns everything serve starts and must stop.
type service struct {
	log     *slog.Logger
	records catalog.Store
	worker  *export.Worker
	server  *http.Server
}

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context, region string) error
}

func newService(ctx context.Context, cfg *config.Config, log *slog.Logger) (*service, error) {
	records, err := persistence.Open(ctx, cfg.RecordStore())
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	artifacts, err := blob.Open(ctx, cfg.BlobStore())
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	if b, ok := artifacts.(bucketEnsurer); ok {
		if err := b.EnsureBucket(ctx, cfg.Blob.MinIORegion); err != nil {
			_ = records.Close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
	}
	renderer, err := render.New(render.WithTemplateDir(cfg.TemplateDir))
	if err != nil {
		_ = records.Close()
		return nil, err
	}

	prom := metrics.NewPrometheus()
	worker := export.NewWorker(records, renderer, artifacts,
		export.WithAudit(export.SlogAuditLog{Logger: log}),
		export.WithMetrics(prom),
		export.WithLogger(log),
		export.WithQueueSize(cfg.ExportQueueSize),
	)
	worker.Start()

	handler := httpapi.NewRouter(httpapi.Deps{
		Records:  records,
		Renderer: renderer,
		Exports:  worker,
		Metrics:  prom,
		Logger:   log,
	})
	log.Info("service configured",
		slog.String("store", cfg.StoreDriver),
		slog.String("blob", string(artifacts.Driver())),
		slog.Int("export_queue", cfg.ExportQueueSize),
	)
	return &service{
		log:     log,
		records: records,
		worker:  worker,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// serve blocks until ctx is cancelled or the listener fails, then shuts
// everything down.
func (s *service) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			s.log.Error("server error", slog.Any("error", serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, s.server.Shutdown(shutdownCtx), s.close(shutdownCtx))
}

func (s *service) close(ctx context.Context) error {
	return errors.Join(s.worker.Stop(ctx), s.records.Close())
}
