package domain

// CatalogReference is the href of a catalog entry as found on a listing page,
// e.g. "/pom/catalog.xhtml?id=123&x=y".
type CatalogReference string

func (r CatalogReference) String() string {
	return string(r)
}

// ReferenceSet holds unique references in the order they were first added.
// It is not safe for concurrent use; the collector merges into it from a single goroutine.
type ReferenceSet struct {
	items []CatalogReference
	index map[CatalogReference]struct{}
}

func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{
		items: make([]CatalogReference, 0),
		index: make(map[CatalogReference]struct{}),
	}
}

// Add appends ref unless it is already present and reports whether it was added.
func (s *ReferenceSet) Add(ref CatalogReference) bool {
	if _, exists := s.index[ref]; exists {
		return false
	}

	s.index[ref] = struct{}{}
	s.items = append(s.items, ref)
	return true
}

// AddAll adds every reference and returns how many were new.
func (s *ReferenceSet) AddAll(refs ...CatalogReference) int {
	added := 0
	for _, ref := range refs {
		if s.Add(ref) {
			added++
		}
	}
	return added
}

func (s *ReferenceSet) Contains(ref CatalogReference) bool {
	_, exists := s.index[ref]
	return exists
}

func (s *ReferenceSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the references in first-seen order.
func (s *ReferenceSet) Items() []CatalogReference {
	items := make([]CatalogReference, len(s.items))
	copy(items, s.items)
	return items
}
