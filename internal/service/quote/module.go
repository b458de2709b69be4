package quote

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/ranking"
	quoterepo "github.com/Additional-Code/procura/internal/repository/quote"
	rfprepo "github.com/Additional-Code/procura/internal/repository/rfp"
)

// Module provides the quote service and its ranking engine to Fx.
var Module = fx.Provide(
	NewService,
	NewEngine,
	func(r *quoterepo.Repository) Store { return r },
	func(r *rfprepo.Repository) RFPReader { return r },
)

// NewEngine builds the ranking engine from the configured weights.
func NewEngine(cfg config.Config) (*ranking.Engine, error) {
	scorer, err := ranking.NewWeightedScorer(cfg.Ranking.PriceWeight, cfg.Ranking.DeliveryWeight)
	if err != nil {
		return nil, err
	}
	return ranking.NewEngine(scorer), nil
}
