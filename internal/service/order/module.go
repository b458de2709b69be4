package order

import (
	"go.uber.org/fx"

	orderrepo "github.com/Additional-Code/procura/internal/repository/order"
	quoterepo "github.com/Additional-Code/procura/internal/repository/quote"
	rfprepo "github.com/Additional-Code/procura/internal/repository/rfp"
)

// Module provides the order service to Fx.
var Module = fx.Provide(
	NewService,
	func(r *orderrepo.Repository) Store { return r },
	func(r *rfprepo.Repository) RFPReader { return r },
	func(r *quoterepo.Repository) QuoteReader { return r },
)
