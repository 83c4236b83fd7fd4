package httpserver

import (
	"net/http"
	"runtime"
	"time"

	"github.com/crossarb/crossarb/internal/ingest"
	"github.com/crossarb/crossarb/internal/storage"
	"github.com/crossarb/crossarb/pkg/healthprobe"
	"github.com/crossarb/crossarb/pkg/types"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const topOpportunityCount = 10

// StatusHandler builds the status document consumed by the API collaborator.
type StatusHandler struct {
	orchestrator *ingest.Orchestrator
	store        storage.Store
	health       *healthprobe.HealthChecker
	logger       *zap.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(o *ingest.Orchestrator, store storage.Store, health *healthprobe.HealthChecker, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		orchestrator: o,
		store:        store,
		health:       health,
		logger:       logger,
	}
}

type platformStatus struct {
	Status            types.VenueStatus `json:"status"`
	MarketCount       int               `json:"marketCount"`
	LastFetch         time.Time         `json:"lastFetch"`
	AvgLatencyMS      float64           `json:"avgLatencyMs"`
	ConsecutiveErrors int               `json:"consecutiveErrors"`
}

type matchingStatus struct {
	ConfirmedMatches int `json:"confirmedMatches"`
	PendingReview    int `json:"pendingReview"`
}

type topOpportunity struct {
	ID         string  `json:"id"`
	Spread     string  `json:"spread"`
	Confidence float64 `json:"confidence"`
	MaxSize    string  `json:"maxSize"`
	AgeSeconds int64   `json:"ageSeconds"`
}

type arbitrageStatus struct {
	ActiveCount      int              `json:"activeCount"`
	TopOpportunities []topOpportunity `json:"topOpportunities"`
}

type systemStatus struct {
	Uptime    string    `json:"uptime"`
	MemoryMB  uint64    `json:"memoryMB"`
	Timestamp time.Time `json:"timestamp"`
}

type statusDocument struct {
	Platforms map[string]platformStatus `json:"platforms"`
	Ingestion ingest.StatsSnapshot      `json:"ingestion"`
	Matching  matchingStatus            `json:"matching"`
	Arbitrage arbitrageStatus           `json:"arbitrage"`
	System    systemStatus              `json:"system"`
}

// HandleStatus serves GET /api/status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	platforms := make(map[string]platformStatus)
	for _, vh := range h.orchestrator.Health() {
		platforms[string(vh.Venue)] = platformStatus{
			Status:            vh.Status,
			MarketCount:       vh.MarketCount,
			LastFetch:         vh.LastFetch,
			AvgLatencyMS:      vh.AvgLatencyMS,
			ConsecutiveErrors: vh.ConsecutiveErrors,
		}
	}

	confirmed, err := h.store.CountMatches(ctx, types.MatchConfirmed)
	if err != nil {
		h.fail(w, err)
		return
	}
	pending, err := h.store.CountMatches(ctx, types.MatchPendingReview)
	if err != nil {
		h.fail(w, err)
		return
	}

	recent, err := h.store.ListRecentOpportunities(ctx, topOpportunityCount)
	if err != nil {
		h.fail(w, err)
		return
	}

	top := make([]topOpportunity, 0, len(recent))
	active := 0
	for i := range recent {
		opp := &recent[i]
		if opp.Status == types.OpportunityActive {
			active++
		}
		top = append(top, topOpportunity{
			ID:         opp.ID,
			Spread:     opp.Profit.GrossSpread.String(),
			Confidence: opp.Confidence.Overall,
			MaxSize:    opp.Profit.MaxExecutableSize.String(),
			AgeSeconds: int64(now.Sub(opp.DetectedAt).Seconds()),
		})
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	doc := statusDocument{
		Platforms: platforms,
		Ingestion: h.orchestrator.Stats(),
		Matching:  matchingStatus{ConfirmedMatches: confirmed, PendingReview: pending},
		Arbitrage: arbitrageStatus{ActiveCount: active, TopOpportunities: top},
		System: systemStatus{
			Uptime:    h.health.Uptime().String(),
			MemoryMB:  mem.Alloc / 1024 / 1024,
			Timestamp: now,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}

func (h *StatusHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("status-handler-error", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
