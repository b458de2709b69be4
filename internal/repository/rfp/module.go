package rfp

import "go.uber.org/fx"

// Module provides the RFP repository to Fx.
var Module = fx.Provide(NewRepository)
