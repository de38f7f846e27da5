package service

import (
	"context"
	"fmt"
	"time"

	"pomona/downloader/internal/client"
	"pomona/downloader/internal/domain"
	"pomona/downloader/internal/metrics"
	"pomona/downloader/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Downloader fetches images batch by batch: every link of a batch runs
// concurrently and the next batch starts once the whole batch has settled.
type Downloader struct {
	client     client.PomonaClient
	images     repository.ImageRepository
	metrics    *metrics.Metrics
	baseURL    string
	extension  string
	batchSize  int
	batchDelay time.Duration
}

type DownloaderOptions struct {
	BaseURL    string
	Extension  string
	BatchSize  int
	BatchDelay time.Duration
}

func NewDownloader(client client.PomonaClient, images repository.ImageRepository, metrics *metrics.Metrics, opts DownloaderOptions) *Downloader {
	return &Downloader{
		client:     client,
		images:     images,
		metrics:    metrics,
		baseURL:    opts.BaseURL,
		extension:  opts.Extension,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
	}
}

// Download derives the download links for refs and fetches them in batches.
// Failed images are counted and skipped. An error is returned only for an
// unusable batch size or when ctx is cancelled between batches.
func (d *Downloader) Download(ctx context.Context, refs []domain.CatalogReference) (domain.DownloadSummary, error) {
	links := domain.DeriveAll(d.baseURL, refs)

	batches, err := domain.Partition(links, d.batchSize)
	if err != nil {
		return domain.DownloadSummary{}, err
	}

	summary := domain.DownloadSummary{
		Batches: len(batches),
		Links:   len(links),
	}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("download stopped before batch %d/%d: %w", i+1, len(batches), err)
		}

		downloaded, failed := 0, 0
		for _, result := range d.DownloadBatch(ctx, batch) {
			if result.Failed() {
				failed++
				continue
			}
			downloaded++
			summary.Bytes += int64(result.Bytes)
		}
		summary.Downloaded += downloaded
		summary.Failed += failed
		d.metrics.Batches.Inc()

		log.Infof("📦 Batch %d/%d done: %d downloaded, %d failed", i+1, len(batches), downloaded, failed)

		if d.batchDelay > 0 && i < len(batches)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(d.batchDelay):
			}
		}
	}

	return summary, nil
}

// DownloadBatch downloads every link of batch concurrently and returns the
// results in batch order.
func (d *Downloader) DownloadBatch(ctx context.Context, batch domain.Batch) []domain.DownloadResult {
	results := make([]domain.DownloadResult, len(batch))
	if len(batch) == 0 {
		return results
	}

	// plain group: one failed image must not cancel its siblings
	g := new(errgroup.Group)
	g.SetLimit(len(batch))

	for i, link := range batch {
		g.Go(func() error {
			results[i] = d.DownloadOne(ctx, link)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DownloadOne fetches link and, on a 2xx answer, stores the body under the
// image identifier. Any failure is reported in the result, never as a panic or abort.
func (d *Downloader) DownloadOne(ctx context.Context, link domain.DownloadLink) domain.DownloadResult {
	start := time.Now()
	result := d.fetchAndSave(ctx, link)
	d.metrics.ObserveDownload(result, time.Since(start))

	if result.Failed() {
		log.Warnf("⚠️ Skipping image %s: %v", link, result.Err)
	} else {
		log.Infof("Downloaded image %s", result.FileName)
	}

	return result
}

func (d *Downloader) fetchAndSave(ctx context.Context, link domain.DownloadLink) domain.DownloadResult {
	result := domain.DownloadResult{Link: link}

	name, err := link.FileName(d.extension)
	if err != nil {
		result.Err = err
		return result
	}
	result.FileName = name

	image, err := d.client.FetchImage(ctx, link)
	if err != nil {
		result.Err = err
		return result
	}
	result.Status = image.StatusCode

	if !image.OK() {
		result.Err = fmt.Errorf("%w: %d", client.ErrUnexpectedStatus, image.StatusCode)
		return result
	}

	if err := d.images.SaveImage(ctx, name, image.Body); err != nil {
		result.Err = err
		return result
	}
	result.Bytes = len(image.Body)

	return result
}
