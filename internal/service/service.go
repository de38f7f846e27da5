package service

import (
	"context"
	"fmt"
	"time"

	"pomona/downloader/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Report is what a finished run found and fetched.
type Report struct {
	Collection domain.CollectionSummary `json:"collection"`
	Download   domain.DownloadSummary   `json:"download"`
	Duration   time.Duration            `json:"duration"`
}

type Service struct {
	collector  *Collector
	downloader *Downloader
	segments   []domain.PageSegment
}

func NewService(collector *Collector, downloader *Downloader, segments []domain.PageSegment) *Service {
	return &Service{
		collector:  collector,
		downloader: downloader,
		segments:   segments,
	}
}

// Run collects every catalog reference first and only then downloads the images.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	log.Infof("---Starting link collection--- (%d page segments)", len(s.segments))

	refs, collection := s.collector.Collect(ctx, s.segments)
	report.Collection = collection

	log.Infof("---Finished link collection---")
	log.Infof("✅ Found %d total fruits (%d of %d pages failed)", refs.Len(), collection.FailedPages, collection.Pages)

	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("run cancelled after collection: %w", err)
	}

	log.Infof("---Starting image download, be patient---")

	download, err := s.downloader.Download(ctx, refs.Items())
	report.Download = download
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	log.Infof("✅ Downloaded %d of %d images in %d batches (%d failed, %d bytes) in %v",
		download.Downloaded, download.Links, download.Batches, download.Failed, download.Bytes,
		report.Duration.Round(time.Second))

	return report, nil
}
