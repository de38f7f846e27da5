package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedLink = errors.New("malformed download link")

// DownloadLink is the absolute URL of a full-size image, e.g.
// "https://usdawatercolors.nal.usda.gov/pom/download.xhtml?id=123".
type DownloadLink string

func (l DownloadLink) String() string {
	return string(l)
}

// Derive turns a catalog reference into its download link: the reference is
// prefixed with baseURL, everything from the first "&" is dropped and
// "catalog" becomes "download".
func Derive(baseURL string, ref CatalogReference) DownloadLink {
	path, _, _ := strings.Cut(ref.String(), "&")
	return DownloadLink(strings.ReplaceAll(baseURL+path, "catalog", "download"))
}

// DeriveAll applies Derive to every reference, keeping their order.
func DeriveAll(baseURL string, refs []CatalogReference) []DownloadLink {
	links := make([]DownloadLink, 0, len(refs))
	for _, ref := range refs {
		links = append(links, Derive(baseURL, ref))
	}
	return links
}

// ImageID returns the part of the link following the first "=".
func (l DownloadLink) ImageID() (string, error) {
	_, id, found := strings.Cut(l.String(), "=")
	if !found || id == "" {
		return "", fmt.Errorf("%w: no identifier in %q", ErrMalformedLink, l)
	}
	if strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: identifier %q is not a plain file name", ErrMalformedLink, id)
	}
	return id, nil
}

// FileName returns the image identifier with ext appended, e.g. "42.jpg".
func (l DownloadLink) FileName(ext string) (string, error) {
	id, err := l.ImageID()
	if err != nil {
		return "", err
	}
	return id + ext, nil
}
