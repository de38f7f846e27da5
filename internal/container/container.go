package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"pomona/downloader/internal/client"
	"pomona/downloader/internal/config"
	"pomona/downloader/internal/domain"
	"pomona/downloader/internal/metrics"
	"pomona/downloader/internal/proxy"
	"pomona/downloader/internal/repository"
	"pomona/downloader/internal/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const metricsShutdownTimeout = 5 * time.Second

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.PomonaClient
	Repository repository.ImageRepository
	Metrics    *metrics.Metrics

	Service *service.Service
}

// New creates a container writing images to the local filesystem
func New(cfg *config.Config) (*Container, error) {
	return NewWithFs(cfg, afero.NewOsFs())
}

// NewWithFs creates a container with all dependencies initialized, storing images on fs
func NewWithFs(cfg *config.Config, fs afero.Fs) (*Container, error) {
	container := &Container{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	var proxySupplier proxy.ProxySupplier
	if len(cfg.Pomona.Proxies) > 0 {
		proxySupplier = proxy.NewProxySupplier(context.Background(), cfg.Pomona.Proxies, cfg.Pomona.BaseURL, cfg.Pomona.TimeoutDuration())
		if proxySupplier.Len() == 0 {
			log.Warnf("⚠️ None of the configured proxies work, connecting directly")
		}
	}

	images, err := repository.NewImageRepository(fs, cfg.Storage.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image repository: %w", err)
	}
	container.Repository = images
	log.Infof("📁 Saving images to %s", images.Dir())

	pomonaClient := client.NewPomonaClient(cfg.Pomona, proxySupplier)
	container.Client = pomonaClient

	collector := service.NewCollector(pomonaClient, container.Metrics, cfg.Pomona.MaxWorkers)
	downloader := service.NewDownloader(pomonaClient, images, container.Metrics, service.DownloaderOptions{
		BaseURL:    cfg.Pomona.BaseURL,
		Extension:  cfg.Storage.Extension,
		BatchSize:  cfg.Pomona.BatchSize,
		BatchDelay: cfg.Pomona.BatchDelayDuration(),
	})

	container.Service = service.NewService(
		collector,
		downloader,
		domain.Segments(cfg.Pomona.PageStride, cfg.Pomona.PageLimit),
	)

	return container, nil
}

// Run executes one full collection and download, serving metrics while it runs when configured
func (c *Container) Run(ctx context.Context) (*service.Report, error) {
	if c.Config.Metrics.ListenAddr == "" {
		return c.Service.Run(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Metrics.Handler())
	server := &http.Server{
		Addr:              c.Config.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("📈 Serving metrics on %s/metrics", c.Config.Metrics.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// metrics are optional, the run goes on without them
			log.Warnf("⚠️ Metrics endpoint unavailable: %v", err)
		}
		return nil
	})

	var report *service.Report
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warnf("⚠️ Failed to stop metrics endpoint: %v", err)
			}
		}()

		var err error
		report, err = c.Service.Run(ctx)
		return err
	})

	err := g.Wait()
	return report, err
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("failed to close HTTP client: %w", err)
	}

	log.Info("Container shut down successfully")
	return nil
}
