package rfp

import (
	"go.uber.org/fx"

	repo "github.com/Additional-Code/procura/internal/repository/rfp"
)

// Module provides the RFP service to Fx.
var Module = fx.Provide(
	NewService,
	func(r *repo.Repository) Store { return r },
)
