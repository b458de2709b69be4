package identity

import (
	"go.uber.org/fx"

	repo "github.com/Additional-Code/procura/internal/repository/user"
)

// Module provides the identity service to Fx.
var Module = fx.Provide(
	NewService,
	func(r *repo.Repository) Store { return r },
)
