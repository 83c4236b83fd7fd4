package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crossarb/crossarb/pkg/types"
	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore implements Store on PostgreSQL. Natural keys carry the
// upsert semantics: markets conflict on (venue, external_id), matches on
// pair_key, opportunities are append-only.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// UpsertMarket inserts or updates a market by (venue, external_id).
func (p *PostgresStore) UpsertMarket(ctx context.Context, m *types.Market) error {
	query := `
		INSERT INTO markets (
			venue, external_id, question, description, category,
			end_date, resolution_source, resolution_rules, tick_size,
			min_order_size, fee_rate, url, status,
			yes_bid, yes_ask, midpoint, spread, last_trade_price, volume_24h,
			last_fetched_at, fetch_latency_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (venue, external_id) DO UPDATE SET
			question = EXCLUDED.question,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			end_date = EXCLUDED.end_date,
			resolution_source = EXCLUDED.resolution_source,
			resolution_rules = EXCLUDED.resolution_rules,
			tick_size = EXCLUDED.tick_size,
			min_order_size = EXCLUDED.min_order_size,
			fee_rate = EXCLUDED.fee_rate,
			url = EXCLUDED.url,
			status = EXCLUDED.status,
			yes_bid = EXCLUDED.yes_bid,
			yes_ask = EXCLUDED.yes_ask,
			midpoint = EXCLUDED.midpoint,
			spread = EXCLUDED.spread,
			last_trade_price = EXCLUDED.last_trade_price,
			volume_24h = EXCLUDED.volume_24h,
			last_fetched_at = EXCLUDED.last_fetched_at,
			fetch_latency_ms = EXCLUDED.fetch_latency_ms
	`

	_, err := p.db.ExecContext(ctx, query,
		m.Venue, m.ExternalID, m.Question, m.Description, m.Category,
		m.EndDate, m.ResolutionSource, m.ResolutionRules, decimalString(m.TickSize),
		decimalString(m.MinOrderSize), decimalString(m.FeeRate), m.URL, m.Status,
		nullDecimalString(m.YesBid), nullDecimalString(m.YesAsk),
		nullDecimalString(m.Midpoint), nullDecimalString(m.Spread),
		nullDecimalString(m.LastTradePrice), decimalString(m.Volume24h),
		m.LastFetchedAt, m.FetchLatencyMS,
	)
	if err != nil {
		return fmt.Errorf("upsert market: %w", err)
	}

	return nil
}

// GetMarket returns one market, or nil when unknown.
func (p *PostgresStore) GetMarket(ctx context.Context, venue types.Venue, externalID string) (*types.Market, error) {
	query := `
		SELECT venue, external_id, question, description, category,
		       end_date, resolution_source, resolution_rules, status, url,
		       last_fetched_at, fetch_latency_ms
		FROM markets WHERE venue = $1 AND external_id = $2
	`

	row := p.db.QueryRowContext(ctx, query, venue, externalID)
	m, err := scanMarket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get market: %w", err)
	}
	return m, nil
}

// ListActiveMarkets returns all ACTIVE markets.
func (p *PostgresStore) ListActiveMarkets(ctx context.Context) ([]types.Market, error) {
	query := `
		SELECT venue, external_id, question, description, category,
		       end_date, resolution_source, resolution_rules, status, url,
		       last_fetched_at, fetch_latency_ms
		FROM markets WHERE status = 'ACTIVE'
		ORDER BY venue, external_id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active markets: %w", err)
	}
	defer rows.Close()

	var out []types.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		out = append(out, *m)
	}

	return out, rows.Err()
}

// UpdateMarketStatus transitions a market's lifecycle status.
func (p *PostgresStore) UpdateMarketStatus(ctx context.Context, venue types.Venue, externalID string, status types.MarketStatus) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE markets SET status = $3 WHERE venue = $1 AND external_id = $2`,
		venue, externalID, status,
	)
	if err != nil {
		return fmt.Errorf("update market status: %w", err)
	}
	return nil
}

// AppendPriceSnapshot appends a snapshot row and trims the per-market trail.
func (p *PostgresStore) AppendPriceSnapshot(ctx context.Context, snap types.PriceSnapshot) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO price_snapshots (venue, external_id, yes_bid, yes_ask, snapshot_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.Venue, snap.ExternalID,
		nullDecimalString(snap.YesBid), nullDecimalString(snap.YesAsk),
		snap.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert price snapshot: %w", err)
	}

	// Trim beyond the rolling window.
	_, err = p.db.ExecContext(ctx, `
		DELETE FROM price_snapshots
		WHERE venue = $1 AND external_id = $2 AND id NOT IN (
			SELECT id FROM price_snapshots
			WHERE venue = $1 AND external_id = $2
			ORDER BY snapshot_at DESC LIMIT $3
		)`,
		snap.Venue, snap.ExternalID, snapshotTrailLength,
	)
	if err != nil {
		return fmt.Errorf("trim price snapshots: %w", err)
	}

	return nil
}

// UpsertMatch inserts or updates a match proposal by pair key. The review
// status column is only written on insert; the external review workflow
// owns it afterwards.
func (p *PostgresStore) UpsertMatch(ctx context.Context, m *types.MarketMatch) error {
	scores, err := json.Marshal(m.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	terms, err := json.Marshal(m.MatchedTerms)
	if err != nil {
		return fmt.Errorf("marshal matched terms: %w", err)
	}
	warnings, err := json.Marshal(m.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	status := m.Status
	if status == "" {
		status = types.MatchPendingReview
	}

	query := `
		INSERT INTO market_matches (
			pair_key, source_venue, source_external_id,
			target_venue, target_external_id,
			scores, matched_terms, resolution_diff, match_reason, warnings,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (pair_key) DO UPDATE SET
			scores = EXCLUDED.scores,
			matched_terms = EXCLUDED.matched_terms,
			resolution_diff = EXCLUDED.resolution_diff,
			match_reason = EXCLUDED.match_reason,
			warnings = EXCLUDED.warnings,
			updated_at = NOW()
	`

	_, err = p.db.ExecContext(ctx, query,
		m.Key(), m.SourceVenue, m.SourceExternalID,
		m.TargetVenue, m.TargetExternalID,
		scores, terms, m.ResolutionDiff, m.MatchReason, warnings,
		status,
	)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}

	return nil
}

// ListMatches returns matches with the given status.
func (p *PostgresStore) ListMatches(ctx context.Context, status types.MatchStatus) ([]types.MarketMatch, error) {
	query := `
		SELECT source_venue, source_external_id, target_venue, target_external_id,
		       scores, matched_terms, resolution_diff, match_reason, warnings,
		       status, created_at, updated_at
		FROM market_matches WHERE status = $1
		ORDER BY pair_key
	`

	rows, err := p.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []types.MarketMatch
	for rows.Next() {
		var m types.MarketMatch
		var scores, terms, warnings []byte
		err = rows.Scan(
			&m.SourceVenue, &m.SourceExternalID, &m.TargetVenue, &m.TargetExternalID,
			&scores, &terms, &m.ResolutionDiff, &m.MatchReason, &warnings,
			&m.Status, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if err = json.Unmarshal(scores, &m.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
		if err = json.Unmarshal(terms, &m.MatchedTerms); err != nil {
			return nil, fmt.Errorf("unmarshal matched terms: %w", err)
		}
		if len(warnings) > 0 {
			if err = json.Unmarshal(warnings, &m.Warnings); err != nil {
				return nil, fmt.Errorf("unmarshal warnings: %w", err)
			}
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

// CountMatches counts matches with the given status.
func (p *PostgresStore) CountMatches(ctx context.Context, status types.MatchStatus) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM market_matches WHERE status = $1`, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}

// MarkMatchesStale transitions every match referencing the market to STALE.
func (p *PostgresStore) MarkMatchesStale(ctx context.Context, venue types.Venue, externalID string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE market_matches SET status = 'STALE', updated_at = NOW()
		WHERE status != 'STALE' AND (
			(source_venue = $1 AND source_external_id = $2) OR
			(target_venue = $1 AND target_external_id = $2)
		)`,
		venue, externalID,
	)
	if err != nil {
		return fmt.Errorf("mark matches stale: %w", err)
	}
	return nil
}

// InsertOpportunity appends a detected opportunity.
func (p *PostgresStore) InsertOpportunity(ctx context.Context, opp *types.ArbitrageOpportunity) error {
	strategy, err := json.Marshal(opp.Strategy)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}
	profit, err := json.Marshal(opp.Profit)
	if err != nil {
		return fmt.Errorf("marshal profit: %w", err)
	}
	confidence, err := json.Marshal(opp.Confidence)
	if err != nil {
		return fmt.Errorf("marshal confidence: %w", err)
	}
	plan, err := json.Marshal(opp.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	query := `
		INSERT INTO arbitrage_opportunities (
			id, match_key, strategy, profit, confidence, plan,
			status, detected_at, source_data_age_ms, target_data_age_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = p.db.ExecContext(ctx, query,
		opp.ID, opp.MatchKey, strategy, profit, confidence, plan,
		opp.Status, opp.DetectedAt, opp.SourceDataAgeMS, opp.TargetDataAgeMS,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored", zap.String("id", opp.ID))

	return nil
}

// ListRecentOpportunities returns the newest opportunities first.
func (p *PostgresStore) ListRecentOpportunities(ctx context.Context, limit int) ([]types.ArbitrageOpportunity, error) {
	query := `
		SELECT id, match_key, strategy, profit, confidence, plan,
		       status, detected_at, source_data_age_ms, target_data_age_ms
		FROM arbitrage_opportunities
		ORDER BY detected_at DESC LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var out []types.ArbitrageOpportunity
	for rows.Next() {
		var opp types.ArbitrageOpportunity
		var strategy, profit, confidence, plan []byte
		err = rows.Scan(
			&opp.ID, &opp.MatchKey, &strategy, &profit, &confidence, &plan,
			&opp.Status, &opp.DetectedAt, &opp.SourceDataAgeMS, &opp.TargetDataAgeMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		if err = json.Unmarshal(strategy, &opp.Strategy); err != nil {
			return nil, fmt.Errorf("unmarshal strategy: %w", err)
		}
		if err = json.Unmarshal(profit, &opp.Profit); err != nil {
			return nil, fmt.Errorf("unmarshal profit: %w", err)
		}
		if err = json.Unmarshal(confidence, &opp.Confidence); err != nil {
			return nil, fmt.Errorf("unmarshal confidence: %w", err)
		}
		if err = json.Unmarshal(plan, &opp.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
		out = append(out, opp)
	}

	return out, rows.Err()
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}
