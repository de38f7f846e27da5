package domain

// PageResult is the outcome of collecting one listing page.
type PageResult struct {
	Segment    PageSegment        `json:"segment"`    // Listing offset
	References []CatalogReference `json:"references"` // Matching hrefs in document order
	Err        error              `json:"-"`          // Fetch or parse failure
}

func (r PageResult) Failed() bool {
	return r.Err != nil
}

// DownloadResult is the outcome of downloading one image.
type DownloadResult struct {
	Link     DownloadLink `json:"link"`
	FileName string       `json:"file_name,omitempty"`
	Status   int          `json:"status,omitempty"` // HTTP status, 0 when no response was received
	Bytes    int          `json:"bytes,omitempty"`  // Bytes written to disk
	Err      error        `json:"-"`
}

func (r DownloadResult) Failed() bool {
	return r.Err != nil
}

type CollectionSummary struct {
	Pages       int `json:"pages"`        // Segments dispatched
	FailedPages int `json:"failed_pages"` // Segments that contributed nothing because of an error
	References  int `json:"references"`   // Unique references collected
}

type DownloadSummary struct {
	Batches    int   `json:"batches"`
	Links      int   `json:"links"`
	Downloaded int   `json:"downloaded"`
	Failed     int   `json:"failed"`
	Bytes      int64 `json:"bytes"`
}
