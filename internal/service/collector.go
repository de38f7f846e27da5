package service

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"pomona/downloader/internal/client"
	"pomona/downloader/internal/domain"
	"pomona/downloader/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// Collector walks the listing pages and gathers the catalog references found on them.
type Collector struct {
	client     client.PomonaClient
	metrics    *metrics.Metrics
	maxWorkers int
}

func NewCollector(client client.PomonaClient, metrics *metrics.Metrics, maxWorkers int) *Collector {
	return &Collector{
		client:     client,
		metrics:    metrics,
		maxWorkers: max(1, maxWorkers),
	}
}

// Collect fetches every segment with at most maxWorkers requests in flight.
// A page that cannot be fetched or parsed contributes nothing; the others are
// unaffected. Results are merged only after every dispatched page has settled.
func (c *Collector) Collect(ctx context.Context, segments []domain.PageSegment) (*domain.ReferenceSet, domain.CollectionSummary) {
	resultsCh := make(chan domain.PageResult, len(segments))
	semaphore := make(chan struct{}, c.maxWorkers)
	wg := &sync.WaitGroup{}
	dispatched := 0

dispatch:
	for _, segment := range segments {
		select {
		case <-ctx.Done():
			log.Warnf("🛑 Collection cancelled, %d page segments not dispatched", len(segments)-dispatched)
			break dispatch
		case semaphore <- struct{}{}:
		}

		dispatched++
		wg.Add(1)
		go func(segment domain.PageSegment) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsCh <- c.collect(ctx, segment)
		}(segment)
	}

	wg.Wait()
	close(resultsCh)

	results := make([]domain.PageResult, 0, len(segments))
	for result := range resultsCh {
		results = append(results, result)
	}

	set := MergeResults(results)

	summary := domain.CollectionSummary{
		Pages:      len(results),
		References: set.Len(),
	}
	for _, result := range results {
		if result.Failed() {
			summary.FailedPages++
		}
		c.metrics.ObservePage(result)
	}
	c.metrics.References.Add(float64(set.Len()))

	return set, summary
}

func (c *Collector) collect(ctx context.Context, segment domain.PageSegment) domain.PageResult {
	refs, err := c.client.GetCatalogReferences(ctx, segment)
	if err != nil {
		log.Warnf("⚠️ Skipping page segment start=%d: %v", segment, err)
		return domain.PageResult{Segment: segment, Err: err}
	}

	log.Infof("Collected %d fruit links from page segment starting at: start=%d", len(refs), segment)
	return domain.PageResult{Segment: segment, References: refs}
}

// MergeResults folds page results into one set. Pages are visited in segment
// order so the outcome does not depend on the order the pages completed in.
func MergeResults(results []domain.PageResult) *domain.ReferenceSet {
	ordered := slices.Clone(results)
	slices.SortStableFunc(ordered, func(a, b domain.PageResult) int {
		return cmp.Compare(a.Segment, b.Segment)
	})

	set := domain.NewReferenceSet()
	for _, result := range ordered {
		if result.Failed() {
			continue
		}
		set.AddAll(result.References...)
	}
	return set
}
