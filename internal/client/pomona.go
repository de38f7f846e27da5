package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pomona/downloader/internal/config"
	"pomona/downloader/internal/domain"
	"pomona/downloader/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type PomonaClient interface {
	ListingURL(segment domain.PageSegment) string
	FetchListing(ctx context.Context, segment domain.PageSegment) (string, error)
	GetCatalogReferences(ctx context.Context, segment domain.PageSegment) ([]domain.CatalogReference, error)
	FetchImage(ctx context.Context, link domain.DownloadLink) (*Image, error)
	Close() error
}

// Image is the raw answer to an image request. Non-2xx answers are returned
// as an Image as well so callers can decide what to do with the status.
type Image struct {
	StatusCode int
	Body       []byte
}

func (i *Image) OK() bool {
	return i.StatusCode >= 200 && i.StatusCode < 300
}

type pomonaClient struct {
	rl         ratelimit.Limiter
	config     config.PomonaConfig
	baseURL    string
	httpClient *resty.Client
	parser     *listingParser
}

func NewPomonaClient(cfg config.PomonaConfig, proxySupplier proxy.ProxySupplier) PomonaClient {
	client := resty.New().
		SetTimeout(cfg.TimeoutDuration()).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Duration(cfg.RetryWait)*time.Second).
		SetRetryMaxWaitTime(time.Duration(cfg.RetryMaxWait)*time.Second).
		SetLogger(log.StandardLogger()).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/*;q=0.8,*/*;q=0.5").
		SetHeader("Accept-Language", "en-US,en;q=0.5")

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using proxy: %s", proxyURL)
		}
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond, ratelimit.WithoutSlack)
	}

	return &pomonaClient{
		rl:         rl,
		config:     cfg,
		baseURL:    cfg.BaseURL,
		httpClient: client,
		parser:     newListingParser(cfg.CatalogPrefix),
	}
}

func (c *pomonaClient) ListingURL(segment domain.PageSegment) string {
	return c.baseURL + fmt.Sprintf(c.config.SearchPath, int(segment))
}

func (c *pomonaClient) FetchListing(ctx context.Context, segment domain.PageSegment) (string, error) {
	url := c.ListingURL(segment)

	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode(), url)
	}

	return resp.String(), nil
}

func (c *pomonaClient) GetCatalogReferences(ctx context.Context, segment domain.PageSegment) ([]domain.CatalogReference, error) {
	html, err := c.FetchListing(ctx, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTML for listing page start=%d: %w", segment, err)
	}

	refs, err := c.parser.ParseListingPage(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page start=%d: %w", segment, err)
	}

	return refs, nil
}

func (c *pomonaClient) FetchImage(ctx context.Context, link domain.DownloadLink) (*Image, error) {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(link.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch image %s: %w", link, err)
	}

	return &Image{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
	}, nil
}

func (c *pomonaClient) Close() error {
	return c.httpClient.Close()
}
