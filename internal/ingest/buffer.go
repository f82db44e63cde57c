package ingest

import (
	"sort"
	"sync"

	"pricewatch-service/internal/models"
)

// Buffer stages raw listings between fetcher deliveries and the next run.
// It keeps the last record per (site, url|name), so a fetcher retry within
// the same day collapses before the run even starts. Safe for concurrent
// use by the HTTP handler and the Kafka listing worker.
type Buffer struct {
	mu    sync.Mutex
	items map[string]models.RawListing
}

// NewBuffer creates an empty staging buffer.
func NewBuffer() *Buffer {
	return &Buffer{items: make(map[string]models.RawListing)}
}

func key(l models.RawListing) string {
	ref := l.URL
	if ref == "" {
		ref = l.Name
	}
	return l.Site + "|" + ref
}

// Add stages one listing, replacing any earlier record for the same
// (site, url|name). Returns true when an earlier record was replaced.
func (b *Buffer) Add(l models.RawListing) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, replaced := b.items[key(l)]
	b.items[key(l)] = l
	return replaced
}

// AddBatch stages a batch of listings.
func (b *Buffer) AddBatch(listings []models.RawListing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range listings {
		b.items[key(l)] = l
	}
}

// Len returns the number of staged listings.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Drain empties the buffer and returns its listings in a deterministic
// order (site, then name), so runs over the same staged set resolve
// identically.
func (b *Buffer) Drain() []models.RawListing {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.RawListing, 0, len(b.items))
	for _, l := range b.items {
		out = append(out, l)
	}
	b.items = make(map[string]models.RawListing)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Site != out[j].Site {
			return out[i].Site < out[j].Site
		}
		return out[i].Name < out[j].Name
	})
	return out
}
