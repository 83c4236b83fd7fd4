package events

import "go.uber.org/zap"

// LogPublisher is a Publisher that writes events to the structured log. Used
// when no downstream bus is attached (development, one-shot CLI runs).
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishOpportunity(evt OpportunityEvent) {
	p.logger.Info("event-new-opportunity",
		zap.String("id", evt.ID),
		zap.String("match-id", evt.MatchID),
		zap.String("roi", evt.ROI),
		zap.String("net-profit", evt.NetProfit),
		zap.Float64("confidence", evt.Confidence))
}

func (p *LogPublisher) PublishPrice(evt PriceEvent) {
	p.logger.Debug("event-price",
		zap.String("venue", evt.Venue),
		zap.String("market-id", evt.MarketID),
		zap.String("price", evt.Price))
}

func (p *LogPublisher) PublishOrderbook(evt OrderbookEvent) {
	p.logger.Debug("event-orderbook",
		zap.String("venue", evt.Venue),
		zap.String("market-id", evt.MarketID))
}
