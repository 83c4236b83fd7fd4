// Package orderbook provides the short-TTL store of latest normalized order
// books and quotes. It is the single authoritative "latest book" source for
// the detector; the persistent store's snapshot trail is audit-only and is
// never consulted on the hot path.
package orderbook

import (
	"fmt"
	"time"

	"github.com/crossarb/crossarb/pkg/cache"
	"github.com/crossarb/crossarb/pkg/types"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Store is a typed wrapper over the TTL cache. Values are stored as JSON so
// the keyspace matches what a shared cache deployment would hold.
type Store struct {
	cache        cache.Cache
	orderbookTTL time.Duration
	quoteTTL     time.Duration
	logger       *zap.Logger
}

// Config holds store configuration.
type Config struct {
	Cache        cache.Cache
	OrderbookTTL time.Duration
	QuoteTTL     time.Duration
	Logger       *zap.Logger
}

// New creates a Store.
func New(cfg Config) *Store {
	return &Store{
		cache:        cfg.Cache,
		orderbookTTL: cfg.OrderbookTTL,
		quoteTTL:     cfg.QuoteTTL,
		logger:       cfg.Logger,
	}
}

// OrderbookKey builds the cache key for a book.
func OrderbookKey(venue types.Venue, externalID string) string {
	return fmt.Sprintf("orderbook:%s:%s", venue, externalID)
}

// QuoteKey builds the cache key for a quote.
func QuoteKey(venue types.Venue, externalID string) string {
	return fmt.Sprintf("quote:%s:%s", venue, externalID)
}

// PutOrderBook writes the latest book, last-writer-wins.
func (s *Store) PutOrderBook(book *types.OrderBook) {
	payload, err := json.Marshal(book)
	if err != nil {
		s.logger.Error("orderbook-marshal-failed",
			zap.String("key", book.Key()),
			zap.Error(err))
		return
	}

	s.cache.Set(OrderbookKey(book.Venue, book.ExternalID), payload, s.orderbookTTL)
}

// GetOrderBook returns the latest book, or nil when absent or expired. The
// read is non-blocking; callers treat nil as "skip".
func (s *Store) GetOrderBook(venue types.Venue, externalID string) *types.OrderBook {
	raw, found := s.cache.Get(OrderbookKey(venue, externalID))
	if !found {
		return nil
	}

	payload, ok := raw.([]byte)
	if !ok {
		return nil
	}

	var book types.OrderBook
	if err := json.Unmarshal(payload, &book); err != nil {
		s.logger.Error("orderbook-unmarshal-failed",
			zap.String("venue", string(venue)),
			zap.String("external-id", externalID),
			zap.Error(err))
		return nil
	}

	return &book
}

// PutQuote writes the latest quote, last-writer-wins.
func (s *Store) PutQuote(quote *types.Quote) {
	payload, err := json.Marshal(quote)
	if err != nil {
		s.logger.Error("quote-marshal-failed",
			zap.String("key", quote.Key()),
			zap.Error(err))
		return
	}

	s.cache.Set(QuoteKey(quote.Venue, quote.ExternalID), payload, s.quoteTTL)
}

// GetQuote returns the latest quote, or nil when absent or expired.
func (s *Store) GetQuote(venue types.Venue, externalID string) *types.Quote {
	raw, found := s.cache.Get(QuoteKey(venue, externalID))
	if !found {
		return nil
	}

	payload, ok := raw.([]byte)
	if !ok {
		return nil
	}

	var quote types.Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return nil
	}

	return &quote
}
