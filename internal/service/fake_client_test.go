package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pomona/downloader/internal/client"
	"pomona/downloader/internal/domain"
)

var errFakeNetwork = errors.New("connection reset by peer")

// fakeClient serves canned pages and images and records how many calls ran at once.
type fakeClient struct {
	pages     map[domain.PageSegment][]domain.CatalogReference
	pageErrs  map[domain.PageSegment]error
	images    map[domain.DownloadLink]*client.Image
	imageErrs map[domain.DownloadLink]error
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu      sync.Mutex
	fetched []domain.DownloadLink
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:     make(map[domain.PageSegment][]domain.CatalogReference),
		pageErrs:  make(map[domain.PageSegment]error),
		images:    make(map[domain.DownloadLink]*client.Image),
		imageErrs: make(map[domain.DownloadLink]error),
	}
}

func (f *fakeClient) enter() {
	current := f.inFlight.Add(1)
	for {
		seen := f.maxInFlight.Load()
		if current <= seen || f.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

func (f *fakeClient) leave() {
	f.inFlight.Add(-1)
}

func (f *fakeClient) ListingURL(segment domain.PageSegment) string {
	return fmt.Sprintf("http://fake.test/pom/search.xhtml?start=%d", segment)
}

func (f *fakeClient) FetchListing(ctx context.Context, segment domain.PageSegment) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeClient) GetCatalogReferences(ctx context.Context, segment domain.PageSegment) ([]domain.CatalogReference, error) {
	f.enter()
	defer f.leave()

	if err := f.pageErrs[segment]; err != nil {
		return nil, err
	}
	return f.pages[segment], nil
}

func (f *fakeClient) FetchImage(ctx context.Context, link domain.DownloadLink) (*client.Image, error) {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	f.fetched = append(f.fetched, link)
	f.mu.Unlock()

	if err := f.imageErrs[link]; err != nil {
		return nil, err
	}
	if img, ok := f.images[link]; ok {
		return img, nil
	}
	return &client.Image{StatusCode: 404}, nil
}

func (f *fakeClient) Close() error {
	return nil
}
