package order

import (
	"go.uber.org/fx"

	service "github.com/Additional-Code/procura/internal/service/order"
)

// Module wires HTTP purchase order handlers.
var Module = fx.Options(
	fx.Provide(
		NewHandler,
		func(svc *service.Service) Service { return svc },
	),
	fx.Invoke(Register),
)
