package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/draftday/mockdraft/internal/catalog"
	"github.com/draftday/mockdraft/internal/draft"
	"github.com/draftday/mockdraft/internal/feed"
	"github.com/draftday/mockdraft/internal/gateway"
	"github.com/draftday/mockdraft/internal/ratelimit"
	"github.com/draftday/mockdraft/internal/store"
	"github.com/draftday/mockdraft/internal/timers"
	"github.com/draftday/mockdraft/internal/trade"
)

// Services holds every wired application component.
type Services struct {
	Store    *store.PostgresStore
	Catalog  *catalog.Repository
	DraftApp *draft.App
	TradeApp *trade.App
	Draft    *draft.Service
	Trade    *trade.Service
	Gateway  *gateway.Service
	Relay    *feed.Relay
}

func setupServices(ctx context.Context, cfg *Config, pool *pgxpool.Pool, databaseURL string) (*Services, error) {
	st := store.NewPostgresStore(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	cat := catalog.NewRepository(pool)
	if err := cat.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	limiter := ratelimit.NewCooldown(clock, 0, map[string]time.Duration{
		"draft_create":  time.Duration(cfg.RateLimit.DraftCreateSeconds) * time.Second,
		"trade_propose": time.Duration(cfg.RateLimit.TradeProposeSeconds) * time.Second,
	})

	draftApp := draft.NewApp(st, draft.Deps{
		Catalog: cat,
		Needs:   cat,
		Order:   cat,
		Clock:   clock,
		Limiter: limiter,
	})

	tradeApp := trade.NewApp(st, trade.Deps{
		Clock:   clock,
		Timers:  timers.NewRegistry(clock),
		Limiter: limiter,
		Needs:   cat,
		Values:  &cfg.Trade.Values,
		Expiry:  time.Duration(cfg.Trade.ExpirySeconds) * time.Second,
	})

	jsCfg := feed.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATS.URL
	jsCfg.StreamName = cfg.NATS.Stream
	jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
	publisher, err := feed.NewJetStreamPublisher(jsCfg)
	if err != nil {
		return nil, err
	}

	relayCfg := cfg.Relay
	relayCfg.DatabaseURL = databaseURL
	relay, err := feed.NewRelay(st, publisher, relayCfg)
	if err != nil {
		return nil, err
	}

	gwCfg := gateway.DefaultConfig()
	gwCfg.JetStreamConfig.URL = cfg.NATS.URL
	gwCfg.JetStreamConfig.StreamName = cfg.NATS.Stream
	gwCfg.JetStreamConfig.SubjectFilter = cfg.NATS.SubjectPrefix + ".>"
	gw, err := gateway.NewService(gwCfg, newStateProvider(draftApp, cat))
	if err != nil {
		return nil, err
	}

	return &Services{
		Store:    st,
		Catalog:  cat,
		DraftApp: draftApp,
		TradeApp: tradeApp,
		Draft:    draft.NewService(draftApp),
		Trade:    trade.NewService(tradeApp),
		Gateway:  gw,
		Relay:    relay,
	}, nil
}
