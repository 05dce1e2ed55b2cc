package app

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/discovery"
	grpcserver "github.com/example/storefront/pkg/grpc"
	"go.uber.org/zap"
)

const healthInterval = 10 * time.Second

// Announce registers this process in etcd when etcd is enabled and adds an
// "etcd" health check that fails once the registration disappears. The
// registration is revoked by Close.
func (a *App) Announce(ctx context.Context, role string, port int) error {
	cfg := a.Config
	if !cfg.Etcd.Enabled {
		return nil
	}

	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, a.Logger.Named("discovery"))
	if err != nil {
		return err
	}

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Role: role,
		Host: cfg.Server.Host,
		Port: port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		_ = sd.Close()
		return err
	}

	a.Checks["etcd"] = func(ctx context.Context) error {
		return sd.Registered(ctx, instance)
	}
	a.onClose(func(ctx context.Context) error {
		if err := sd.Deregister(ctx, instance); err != nil {
			a.Logger.Warn("Failed to deregister service", zap.Error(err))
		}
		return sd.Close()
	})
	return nil
}

// HealthServer builds the gRPC health endpoint from the dependency checks
// and keeps it refreshed until ctx is done.
func (a *App) HealthServer(ctx context.Context) *grpcserver.HealthServer {
	checks := make(map[string]grpcserver.Check, len(a.Checks))
	for name, check := range a.Checks {
		checks[name] = grpcserver.Check(check)
	}

	hs := grpcserver.NewHealthServer(&a.Config.Server, checks, a.Logger.Named("health"))
	hs.Refresh(ctx)
	go hs.Watch(ctx, healthInterval)
	return hs
}
