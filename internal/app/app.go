package app

import (
	"context"
	"log"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/naryasomayaj/group-activity-planner/internal/config"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
	http_event "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/event"
	http_group "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/group"
	http_init "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/init"
	http_metrics "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/metrics"
	http_access_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/access"
	http_auth_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/auth"
	http_metrics_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/metrics"
	http_profile "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/profile"
	http_voting "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/voting"
	ws_group "github.com/naryasomayaj/group-activity-planner/internal/delivery/ws/group"
	infra_generator "github.com/naryasomayaj/group-activity-planner/internal/infra/generator"
	infra_memory_document "github.com/naryasomayaj/group-activity-planner/internal/infra/memory/document"
	infra_nats_events "github.com/naryasomayaj/group-activity-planner/internal/infra/nats/events"
	infra_postgres_document "github.com/naryasomayaj/group-activity-planner/internal/infra/postgres/document"
	infra_pg_init "github.com/naryasomayaj/group-activity-planner/internal/infra/postgres/init"
	infra_redis_init "github.com/naryasomayaj/group-activity-planner/internal/infra/redis/init"
	infra_redis_namecache "github.com/naryasomayaj/group-activity-planner/internal/infra/redis/namecache"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
	service_identity "github.com/naryasomayaj/group-activity-planner/internal/service/auth/identity"
	service_names "github.com/naryasomayaj/group-activity-planner/internal/service/names"
	storage_document "github.com/naryasomayaj/group-activity-planner/internal/storage/document"
	storage_planner "github.com/naryasomayaj/group-activity-planner/internal/storage/planner"
	usecase_event "github.com/naryasomayaj/group-activity-planner/internal/usecase/event"
	usecase_membership "github.com/naryasomayaj/group-activity-planner/internal/usecase/membership"
	usecase_profile "github.com/naryasomayaj/group-activity-planner/internal/usecase/profile"
	usecase_voting "github.com/naryasomayaj/group-activity-planner/internal/usecase/voting"
	"github.com/naryasomayaj/group-activity-planner/pkg/logging"
)

type publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

func Go(cfg *config.Config) {
	logging.Setup()

	var backend storage_document.Backend
	var nameCache service_names.Cache = service_names.NewMemoryCache()

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory document store, data is lost on restart")
		backend = infra_memory_document.New()
	default:
		pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
		pgDriver := infra_postgres_document.New(pgConn)
		stopListening, err := pgDriver.Listen(infra_pg_init.DSN(cfg.Postgres))
		if err != nil {
			log.Fatalf("failed to listen for document changes: %v", err)
		}
		defer stopListening()
		backend = pgDriver

		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
		nameCache = infra_redis_namecache.New(redisConn, "display_name", cfg.Redis.NameCacheTTL)
	}

	var generator usecase_event.TextGenerator
	if cfg.Generator.APIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, using canned activity ideas")
		generator = infra_generator.NewMock()
	} else {
		generator = infra_generator.MustEstablishConnection(cfg.Generator)
	}

	var bus publisher = infra_nats_events.Nop{}
	if cfg.NATS.URL != "" {
		natsBus, err := infra_nats_events.New(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		bus = natsBus
	}
	defer bus.Close()

	docs := storage_document.New(backend, cfg.Store.TxAttempts)
	plannerStorage := storage_planner.New(docs)
	names := service_names.New(nameCache, plannerStorage)

	membershipUC := usecase_membership.New(plannerStorage, bus)
	eventUC := usecase_event.New(plannerStorage, generator, names, bus)
	votingUC := usecase_voting.New(plannerStorage, bus)
	profileUC := usecase_profile.New(plannerStorage, names)

	verifier := service_identity.New(cfg.Auth.Secret, cfg.Auth.Issuer)
	authMiddleware := http_auth_middleware.New(verifier)

	hub := ws_group.New(plannerStorage, func(g model.Group) any {
		return http_common.NewGroupDTO(g)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsMiddleware := http_metrics_middleware.New(registry)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Use(
		metricsMiddleware.Handler(),
		http_access_middleware.ReadOnly(cfg.HTTP.Mode),
	)
	controllerPool.Add(
		http_metrics.New(registry),
		http_profile.New(profileUC, authMiddleware),
		http_group.New(membershipUC, authMiddleware, hub),
		http_event.New(eventUC, authMiddleware),
		http_voting.New(votingUC, authMiddleware),
	)

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Host, cfg.HTTP.Port)
}
