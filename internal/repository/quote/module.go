package quote

import "go.uber.org/fx"

// Module provides the quote repository to Fx.
var Module = fx.Provide(NewRepository)
