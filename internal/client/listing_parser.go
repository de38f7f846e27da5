package client

import (
	"fmt"
	"strings"

	"pomona/downloader/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

type listingParser struct {
	catalogPrefix string
}

func newListingParser(catalogPrefix string) *listingParser {
	return &listingParser{
		catalogPrefix: catalogPrefix,
	}
}

// ParseListingPage returns the hrefs of all anchors on a search results page
// that point at a catalog entry, in document order and without repeats.
func (p *listingParser) ParseListingPage(html string) ([]domain.CatalogReference, error) {
	refs, err := ExtractReferences(html, p.catalogPrefix)
	if err != nil {
		return nil, err
	}

	log.Debugf("Extracted %d catalog references from listing page", len(refs))
	return refs, nil
}

// ExtractReferences parses html and returns the href of every anchor starting
// with prefix. Anchors without an href are ignored.
func ExtractReferences(html, prefix string) ([]domain.CatalogReference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	refs := make([]domain.CatalogReference, 0)
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(i int, link *goquery.Selection) {
		href, exists := link.Attr("href")
		if !exists || !strings.HasPrefix(href, prefix) {
			return
		}

		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		refs = append(refs, domain.CatalogReference(href))
	})

	return refs, nil
}
