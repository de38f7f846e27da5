package domain

// PageSegment is the "start" offset of one page of the search listing.
type PageSegment int

// Segments returns every offset from 0 up to, but excluding, limit in steps of stride.
func Segments(stride, limit int) []PageSegment {
	if stride <= 0 || limit <= 0 {
		return nil
	}

	segments := make([]PageSegment, 0, (limit+stride-1)/stride)
	for offset := 0; offset < limit; offset += stride {
		segments = append(segments, PageSegment(offset))
	}

	return segments
}
