package http

import (
	"go.uber.org/fx"

	authtransport "github.com/Additional-Code/procura/internal/transport/http/auth"
	dashboardtransport "github.com/Additional-Code/procura/internal/transport/http/dashboard"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
	ordertransport "github.com/Additional-Code/procura/internal/transport/http/order"
	quotetransport "github.com/Additional-Code/procura/internal/transport/http/quote"
	rfptransport "github.com/Additional-Code/procura/internal/transport/http/rfp"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	middleware.Module,
	authtransport.Module,
	rfptransport.Module,
	quotetransport.Module,
	ordertransport.Module,
	dashboardtransport.Module,
)
