package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const maxParallelChecks = 20

// ProxySupplier hands out working proxies with round-robin selection
type ProxySupplier interface {
	Get() string
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewProxySupplier checks every proxy against testURL in parallel and keeps the ones that answer.
// An empty list yields a supplier that always returns "".
func NewProxySupplier(ctx context.Context, proxies []string, testURL string, timeout time.Duration) ProxySupplier {
	if len(proxies) == 0 {
		return &proxySupplier{proxies: []string{}}
	}

	log.Infof("🔄 Checking %d proxies against %s...", len(proxies), testURL)

	working := make([]bool, len(proxies))
	semaphore := make(chan struct{}, maxParallelChecks)

	var wg sync.WaitGroup
	for i, proxyURL := range proxies {
		wg.Add(1)

		go func(index int, proxyURL string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			working[index] = isProxyValid(ctx, proxyURL, testURL, timeout)
		}(i, proxyURL)
	}
	wg.Wait()

	// keep configuration order so rotation is predictable
	valid := make([]string, 0, len(proxies))
	for i, proxyURL := range proxies {
		if working[i] {
			valid = append(valid, proxyURL)
		}
	}

	log.Infof("✅ %d of %d proxies usable", len(valid), len(proxies))

	return &proxySupplier{proxies: valid}
}

// Get returns the next proxy URL, or "" when none are usable
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxyURL := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxyURL
}

func (p *proxySupplier) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.proxies)
}

func isProxyValid(ctx context.Context, proxyURL, testURL string, timeout time.Duration) bool {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Get(testURL)
	if err != nil {
		log.Warnf("❌ Proxy %s failed: %v", proxyURL, err)
		return false
	}

	if resp.IsError() {
		log.Warnf("❌ Proxy %s answered with status %s", proxyURL, resp.Status())
		return false
	}

	log.Debugf("Proxy %s is working", proxyURL)
	return true
}
