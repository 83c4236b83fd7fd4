package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crossarb/crossarb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStore{db: db, logger: zap.NewNop()}, mock
}

func TestPostgresStore_UpsertMarket(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO markets").
		WillReturnResult(sqlmock.NewResult(0, 1))

	end := time.Now().Add(24 * time.Hour)
	m := &types.Market{
		Venue:      types.VenueKalshi,
		ExternalID: "KX-1",
		Question:   "Q?",
		Outcomes:   []string{"YES", "NO"},
		EndDate:    &end,
		Status:     types.MarketActive,
		TickSize:   decimal.RequireFromString("0.01"),
		YesBid:     decimal.NewNullDecimal(decimal.RequireFromString("0.42")),
	}

	err := store.UpsertMarket(context.Background(), m)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMarketStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE markets SET status").
		WithArgs(types.VenueKalshi, "KX-1", types.MarketClosed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateMarketStatus(context.Background(), types.VenueKalshi, "KX-1", types.MarketClosed)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendPriceSnapshotTrims(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO price_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM price_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.AppendPriceSnapshot(context.Background(), types.PriceSnapshot{
		Venue:      types.VenueKalshi,
		ExternalID: "KX-1",
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMatch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO market_matches").
		WillReturnResult(sqlmock.NewResult(0, 1))

	match := &types.MarketMatch{
		SourceVenue:      types.VenuePolymarket,
		SourceExternalID: "pm-1",
		TargetVenue:      types.VenueKalshi,
		TargetExternalID: "KX-1",
		Scores:           types.MatchScores{Semantic: 0.8, Overall: 0.75},
		MatchedTerms:     []string{"cpi", "2026"},
		MatchReason:      "question wording overlaps strongly",
	}

	err := store.UpsertMatch(context.Background(), match)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertOpportunity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WillReturnResult(sqlmock.NewResult(0, 1))

	opp := &types.ArbitrageOpportunity{
		ID:       "opp-1",
		MatchKey: "KALSHI:KX-1|POLYMARKET:pm-1",
		Strategy: types.Strategy{
			Action:   types.BuyYesSellYes,
			BuyVenue: types.VenuePolymarket,
		},
		Profit: types.ProfitAnalysis{
			NetProfit: decimal.RequireFromString("23.70"),
		},
		Confidence: types.Confidence{Overall: 0.75},
		Status:     types.OpportunityActive,
		DetectedAt: time.Now(),
	}

	err := store.InsertOpportunity(context.Background(), opp)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountMatches(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM market_matches").
		WithArgs(types.MatchConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := store.CountMatches(context.Background(), types.MatchConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
