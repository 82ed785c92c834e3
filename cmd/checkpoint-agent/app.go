package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/CheckPoint/config"
	"github.com/BearBump/CheckPoint/internal/integrations/portal"
	"github.com/BearBump/CheckPoint/internal/integrations/portal/fake"
	"github.com/BearBump/CheckPoint/internal/integrations/portal/portalhttp"
	"github.com/BearBump/CheckPoint/internal/netmon"
	"github.com/BearBump/CheckPoint/internal/outbox"
	"github.com/BearBump/CheckPoint/internal/services/checkin"
	"github.com/BearBump/CheckPoint/internal/services/syncer"
)

type agentQueue interface {
	checkin.Queue
	syncer.Repository
	CountPending(ctx context.Context) (int64, error)
	Close() error
}

type agentFactories struct {
	newOutbox       func(cfg *config.Config) (agentQueue, error)
	newPortalClient func(cfg *config.Config) portal.Client
}

func defaultAgentFactories() agentFactories {
	return agentFactories{
		newOutbox: func(cfg *config.Config) (agentQueue, error) {
			path := cfg.Agent.OutboxPath
			if path == "" {
				path = "checkpoint-outbox.db"
			}
			return outbox.Open(path)
		},
		newPortalClient: func(cfg *config.Config) portal.Client {
			// Fake ходит в память: удобно гонять агента без сервера.
			if cfg.Agent.PortalMode == "http" && cfg.Agent.PortalBaseURL != "" {
				return portalhttp.New(cfg.Agent.PortalBaseURL, cfg.Agent.PortalToken)
			}
			return fake.New()
		},
	}
}

func RunAgent(ctx context.Context, cfg *config.Config, f agentFactories, httpOpts agentHTTPOpts) error {
	probeInterval := time.Duration(cfg.Agent.ProbeIntervalSeconds) * time.Second
	if probeInterval <= 0 {
		probeInterval = 10 * time.Second
	}
	syncInterval := time.Duration(cfg.Agent.SyncIntervalSeconds) * time.Second
	if syncInterval <= 0 {
		syncInterval = 60 * time.Second
	}
	retention := time.Duration(cfg.Agent.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	ob, err := f.newOutbox(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ob.Close() }()

	portalClient := f.newPortalClient(cfg)
	identity := checkin.StaticIdentity(cfg.Agent.UserID)

	monitor := netmon.New(false)
	if cfg.Agent.ProbeURL != "" {
		prober := netmon.NewHTTPProber(cfg.Agent.ProbeURL)
		go netmon.Watch(ctx, monitor, prober, probeInterval)
	} else {
		// Без пробы считаем себя онлайн, переключение руками через admin API.
		monitor.Set(true)
	}

	svc := checkin.New(portalClient, ob, monitor, identity)
	sync := syncer.New(ob, portalClient, monitor, identity).
		WithSettings(syncInterval, retention)

	if httpOpts.httpAddr == "" {
		httpOpts.httpAddr = cfg.Agent.HTTPAddr
	}
	httpOpts.svc = svc
	httpOpts.sync = sync
	httpOpts.monitor = monitor
	httpOpts.queue = ob

	httpErr := make(chan error, 1)
	go func() { httpErr <- runAgentHTTPServer(ctx, httpOpts) }()

	syncErr := make(chan error, 1)
	go func() {
		slog.Info("syncer started", "syncInterval", syncInterval, "retention", retention)
		syncErr <- sync.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-syncErr:
		return err
	}
}
