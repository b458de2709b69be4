package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/attachment"
	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/logger"
	"github.com/Additional-Code/procura/internal/messaging"
	"github.com/Additional-Code/procura/internal/observability"
	repositorydashboard "github.com/Additional-Code/procura/internal/repository/dashboard"
	repositoryorder "github.com/Additional-Code/procura/internal/repository/order"
	repositoryquote "github.com/Additional-Code/procura/internal/repository/quote"
	repositoryrfp "github.com/Additional-Code/procura/internal/repository/rfp"
	repositoryuser "github.com/Additional-Code/procura/internal/repository/user"
	grpcserver "github.com/Additional-Code/procura/internal/server/grpc"
	httpserver "github.com/Additional-Code/procura/internal/server/http"
	servicedashboard "github.com/Additional-Code/procura/internal/service/dashboard"
	serviceorder "github.com/Additional-Code/procura/internal/service/order"
	servicequote "github.com/Additional-Code/procura/internal/service/quote"
	servicerfp "github.com/Additional-Code/procura/internal/service/rfp"
	transporthttp "github.com/Additional-Code/procura/internal/transport/http"
	"github.com/Additional-Code/procura/internal/worker"
	workerprocurement "github.com/Additional-Code/procura/internal/worker/procurement"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
)

// Domain wires repositories and services for the procurement workflow.
var Domain = fx.Options(
	repositoryuser.Module,
	repositoryrfp.Module,
	repositoryquote.Module,
	repositoryorder.Module,
	repositorydashboard.Module,
	attachment.Module,
	event.Module,
	identity.Module,
	servicerfp.Module,
	servicequote.Module,
	serviceorder.Module,
	servicedashboard.Module,
)

// HTTP wires the HTTP and gRPC health servers on top of the domain.
var HTTP = fx.Options(
	Core,
	Domain,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerprocurement.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
