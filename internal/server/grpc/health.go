package grpc

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthInterval = 15 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealth serves grpc.health.v1 and keeps the overall status in step
// with the database.
func RegisterHealth(lc fx.Lifecycle, server *grpc.Server, db Pinger, logger *zap.Logger) *health.Server {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go watch(ctx, hs, db, logger)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			hs.Shutdown()
			return nil
		},
	})
	return hs
}

func watch(ctx context.Context, hs *health.Server, db Pinger, logger *zap.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := probe(ctx, db)
		if status != last {
			logger.Info("grpc health changed", zap.String("status", status.String()))
			last = status
		}
		hs.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, db Pinger) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
