package testutil

import (
	"context"
	"sync"

	"github.com/crossarb/crossarb/internal/venue"
	"github.com/crossarb/crossarb/pkg/types"
)

// FakeAdapter is a scriptable venue.Adapter for orchestrator tests.
type FakeAdapter struct {
	VenueTag types.Venue

	mu           sync.Mutex
	markets      []types.Market
	marketsErr   error
	books        map[string]*types.OrderBook
	booksErr     map[string]error
	health       types.VenueHealth
	pushStarted  bool
	pushIDs      []string
	FetchedBooks []string
}

// NewFakeAdapter creates a healthy fake for the given venue.
func NewFakeAdapter(v types.Venue) *FakeAdapter {
	return &FakeAdapter{
		VenueTag: v,
		books:    make(map[string]*types.OrderBook),
		booksErr: make(map[string]error),
		health:   types.VenueHealth{Venue: v, Status: types.VenueHealthy},
	}
}

// SetMarkets scripts the next FetchActiveMarkets result.
func (f *FakeAdapter) SetMarkets(markets []types.Market, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets = markets
	f.marketsErr = err
}

// SetBook scripts a FetchOrderBook result.
func (f *FakeAdapter) SetBook(externalID string, book *types.OrderBook, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[externalID] = book
	if err != nil {
		f.booksErr[externalID] = err
	} else {
		delete(f.booksErr, externalID)
	}
}

// SetStatus scripts the health status.
func (f *FakeAdapter) SetStatus(status types.VenueStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health.Status = status
}

func (f *FakeAdapter) Venue() types.Venue {
	return f.VenueTag
}

func (f *FakeAdapter) FetchActiveMarkets(ctx context.Context) ([]types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	out := make([]types.Market, len(f.markets))
	copy(out, f.markets)
	return out, nil
}

func (f *FakeAdapter) FetchOrderBook(ctx context.Context, externalID string) (*types.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchedBooks = append(f.FetchedBooks, externalID)
	if err := f.booksErr[externalID]; err != nil {
		return nil, err
	}
	return f.books[externalID], nil
}

func (f *FakeAdapter) FetchQuote(ctx context.Context, externalID string) (*types.Quote, error) {
	return nil, nil
}

func (f *FakeAdapter) SupportsPush() bool {
	return false
}

func (f *FakeAdapter) StartPush(ctx context.Context, externalIDs []string, sink venue.Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushStarted = true
	f.pushIDs = append([]string(nil), externalIDs...)
	return nil
}

// PushIDs returns the ids of the last StartPush call.
func (f *FakeAdapter) PushIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pushIDs...)
}

func (f *FakeAdapter) StopPush() error {
	return nil
}

func (f *FakeAdapter) Health() types.VenueHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}
