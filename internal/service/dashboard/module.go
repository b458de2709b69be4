package dashboard

import (
	"go.uber.org/fx"

	repo "github.com/Additional-Code/procura/internal/repository/dashboard"
)

// Module provides the dashboard service to Fx.
var Module = fx.Provide(
	NewService,
	func(r *repo.Repository) Stats { return r },
)
