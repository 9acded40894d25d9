package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lingualabs/lingua-core/internal/analysis"
	"github.com/lingualabs/lingua-core/internal/audio"
	"github.com/lingualabs/lingua-core/internal/bus"
	"github.com/lingualabs/lingua-core/internal/config"
	"github.com/lingualabs/lingua-core/internal/natsserver"
	"github.com/lingualabs/lingua-core/internal/recording"
	"github.com/lingualabs/lingua-core/internal/speech"
	"github.com/lingualabs/lingua-core/internal/storage"
)

type Runtime struct {
	cfg           config.Config
	logger        *slog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
	tracerClose   func(context.Context) error
	ready         atomic.Bool
	wg            sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger.With(slog.String("component", "natsserver")))
	if err != nil {
		return fmt.Errorf("failed to start embedded NATS: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger.With(slog.String("component", "bus")))
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	store, err := recording.Open(ctx, r.cfg.Recordings, r.logger.With(slog.String("component", "store")))
	if err != nil {
		return fmt.Errorf("failed to open recording store: %w", err)
	}
	defer store.Close()

	files, err := newFileStore(r.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to configure object storage: %w", err)
	}

	tool, err := audio.ResolveTool(r.cfg.Transcode)
	if err != nil {
		return fmt.Errorf("failed to resolve transcoding tool: %w", err)
	}
	r.logger.Info("transcoding tool resolved",
		slog.String("path", tool.Path), slog.String("source", string(tool.Source)))
	normalizer := audio.NewNormalizer(tool, r.logger.With(slog.String("component", "audio")))

	engine, err := newEngine(r.cfg.Speech)
	if err != nil {
		return fmt.Errorf("failed to configure speech engine: %w", err)
	}
	driver := speech.NewDriver(engine, r.cfg.Speech.Language, r.logger.With(slog.String("component", "speech")))

	prosody, err := newProsody(r.cfg.Prosody)
	if err != nil {
		return fmt.Errorf("failed to configure prosody analyzer: %w", err)
	}
	summarizer, err := newSummarizer(r.cfg.Summary)
	if err != nil {
		return fmt.Errorf("failed to configure pronunciation summarizer: %w", err)
	}

	queue, err := recording.NewNATSQueue(busClient, r.logger.With(slog.String("component", "queue")))
	if err != nil {
		return fmt.Errorf("failed to initialize job queue: %w", err)
	}

	manager := recording.NewManager(store, files, normalizer, driver, prosody, summarizer,
		queue, r.cfg.Speech.Language, r.logger)

	worker := recording.NewWorker(ctx, manager, busClient, r.cfg.Worker, r.logger)
	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	defer worker.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	newAPI(manager, r.logger).register(mux)
	if r.cfg.Storage.Mode == "local" {
		mux.Handle("GET /objects/", http.StripPrefix("/objects/", http.FileServer(http.Dir(r.cfg.Storage.Directory))))
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func newFileStore(cfg config.StorageConfig) (storage.FileStore, error) {
	switch cfg.Mode {
	case "s3":
		opts := s3.Options{
			Region:      cfg.Region,
			Credentials: aws.CredentialsProviderFunc(envCredentials),
		}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
			opts.UsePathStyle = true
		}
		client := s3.New(opts)
		return storage.NewS3(client, cfg.Bucket, cfg.Prefix, cfg.Region, cfg.PublicURL), nil
	case "local":
		return storage.NewLocal(cfg.Directory, cfg.PublicURL), nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}
}

func envCredentials(_ context.Context) (aws.Credentials, error) {
	access := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if access == "" || secret == "" {
		return aws.Credentials{}, errors.New("AWS credentials not set in environment")
	}
	return aws.Credentials{
		AccessKeyID:     access,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

func newEngine(cfg config.SpeechConfig) (speech.Engine, error) {
	switch cfg.Mode {
	case "exec":
		return speech.NewExecEngine(cfg)
	default:
		return speech.NewMockEngine(), nil
	}
}

func newProsody(cfg config.AnalyzerConfig) (analysis.ProsodyAnalyzer, error) {
	switch cfg.Mode {
	case "exec":
		return analysis.NewExecProsody(cfg)
	default:
		return analysis.NewMockProsody(), nil
	}
}

func newSummarizer(cfg config.AnalyzerConfig) (analysis.PronunciationSummarizer, error) {
	switch cfg.Mode {
	case "exec":
		return analysis.NewExecSummarizer(cfg)
	default:
		return analysis.NewMockSummarizer(), nil
	}
}
