package httpserver

import (
	"net/http"

	"github.com/crossarb/crossarb/internal/orderbook"
	"github.com/crossarb/crossarb/pkg/types"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// OrderbookHandler serves the latest cached book for a market. Debug
// surface: the read API for clients lives with the API collaborator.
type OrderbookHandler struct {
	books  *orderbook.Store
	logger *zap.Logger
}

// NewOrderbookHandler creates an order book handler.
func NewOrderbookHandler(books *orderbook.Store, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{books: books, logger: logger}
}

// HandleOrderbook serves GET /api/orderbook?venue=KALSHI&id=TICKER.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	v := types.Venue(r.URL.Query().Get("venue"))
	id := r.URL.Query().Get("id")

	if !v.Valid() || id == "" {
		http.Error(w, "venue and id query parameters required", http.StatusBadRequest)
		return
	}

	book := h.books.GetOrderBook(v, id)
	if book == nil {
		http.Error(w, "no cached orderbook", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(book)
}
