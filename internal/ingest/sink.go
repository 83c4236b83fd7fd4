package ingest

import (
	"sync"

	"github.com/crossarb/crossarb/pkg/types"
)

// coalescer is the bounded fan-in buffer between adapters and the apply
// loop. It keeps only the latest event per (venue, external_id): an
// overwrite drops the older entry for the same key, so a slow apply loop
// costs staleness on busy markets, never memory or blocking.
type coalescer struct {
	mu     sync.Mutex
	books  map[string]*types.OrderBook
	quotes map[string]*types.Quote
	notify chan struct{}
}

func newCoalescer() *coalescer {
	return &coalescer{
		books:  make(map[string]*types.OrderBook),
		quotes: make(map[string]*types.Quote),
		notify: make(chan struct{}, 1),
	}
}

func (c *coalescer) putBook(book *types.OrderBook) {
	c.mu.Lock()
	if _, replaced := c.books[book.Key()]; replaced {
		EventsCoalescedTotal.WithLabelValues("orderbook").Inc()
	}
	c.books[book.Key()] = book
	c.mu.Unlock()

	c.wake()
}

func (c *coalescer) putQuote(quote *types.Quote) {
	c.mu.Lock()
	if _, replaced := c.quotes[quote.Key()]; replaced {
		EventsCoalescedTotal.WithLabelValues("quote").Inc()
	}
	c.quotes[quote.Key()] = quote
	c.mu.Unlock()

	c.wake()
}

func (c *coalescer) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns everything currently buffered.
func (c *coalescer) drain() ([]*types.OrderBook, []*types.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	books := make([]*types.OrderBook, 0, len(c.books))
	for _, b := range c.books {
		books = append(books, b)
	}
	quotes := make([]*types.Quote, 0, len(c.quotes))
	for _, q := range c.quotes {
		quotes = append(quotes, q)
	}

	c.books = make(map[string]*types.OrderBook)
	c.quotes = make(map[string]*types.Quote)

	return books, quotes
}
