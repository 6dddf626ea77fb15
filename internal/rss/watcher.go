package rss

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// MinInterval is the shortest allowed polling interval.
const MinInterval = 30 * time.Second

// Item is a feed entry reported by the Watcher.
type Item struct {
	GUID      string
	Title     string
	Link      string
	Published time.Time
}

// Watcher polls a feed and reports entries it has not seen before.
type Watcher struct {
	url      string
	interval time.Duration
	parser   *gofeed.Parser

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewWatcher creates a watcher for feedURL. Intervals below MinInterval are
// raised to it.
func NewWatcher(feedURL string, interval time.Duration) *Watcher {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Watcher{
		url:      feedURL,
		interval: interval,
		parser:   gofeed.NewParser(),
		seen:     make(map[string]struct{}),
	}
}

// Poll fetches the feed once and returns the entries not returned by an
// earlier Poll, oldest first as they appear in the document.
func (w *Watcher) Poll(ctx context.Context) ([]Item, error) {
	parsed, err := w.parser.ParseURLWithContext(w.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", w.url, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var fresh []Item
	for _, it := range parsed.Items {
		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}
		if guid == "" {
			continue
		}
		if _, ok := w.seen[guid]; ok {
			continue
		}
		w.seen[guid] = struct{}{}

		published := now
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		}
		fresh = append(fresh, Item{
			GUID:      guid,
			Title:     it.Title,
			Link:      it.Link,
			Published: published,
		})
	}
	return fresh, nil
}

// Run polls until ctx is cancelled, calling onNew with each non-empty batch.
// Poll errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, onNew func([]Item)) error {
	for {
		items, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Watcher error: %v", err)
		} else if len(items) > 0 {
			onNew(items)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}
