package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-assistant/internal/assistant"
	"chat-assistant/internal/common/audit"
	"chat-assistant/internal/common/completion"
	"chat-assistant/internal/common/config"
	"chat-assistant/internal/common/database"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/observability"
	"chat-assistant/internal/common/plantapi"
	"chat-assistant/internal/models"
	"chat-assistant/internal/session"
	"chat-assistant/internal/transport/webhook"
	freeformreply "chat-assistant/internal/workers/ai-conversation/freeform-reply"
	routeintent "chat-assistant/internal/workers/ai-conversation/route-intent"
	synthesizequery "chat-assistant/internal/workers/ai-conversation/synthesize-query"
	executequery "chat-assistant/internal/workers/data-access/execute-query"
	buildresponse "chat-assistant/internal/workers/infrastructure/build-response"
	guidedflow "chat-assistant/internal/workers/plant-care/guided-flow"
)

// Connection attempts made for each backing store before startup gives up.
var (
	ConnectRetries = 15
	ConnectDelay   = 2 * time.Second
)

// App owns every long-lived client. Close releases them in reverse order.
type App struct {
	Dispatcher *assistant.Dispatcher
	Log        logger.Logger

	cfg     *config.Config
	obs     *observability.Observability
	sql     *database.SQLClient
	redis   *database.RedisClient
	es      *database.ElasticsearchClient
	closers []func()
}

// New connects the inventory store, Redis and Elasticsearch as configured
// and assembles the dispatcher with all of its components.
func New(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, obs *observability.Observability) (*App, error) {
	if obs == nil {
		obs = observability.NewNoop()
	}
	a := &App{cfg: cfg, Log: logger.NewZapAdapter(zapLog), obs: obs}

	schema, err := models.DefaultSchemaRegistry().Lookup(cfg.Query.Schema)
	if err != nil {
		return nil, err
	}

	// --- Init inventory store with retry ---
	err = retryWithBackoff(func() error {
		var err error
		a.sql, err = database.NewSQL(cfg.Database)
		if err != nil {
			return err
		}
		if err := a.sql.Ping(ctx); err != nil {
			_ = a.sql.Close()
			return err
		}
		return nil
	}, ConnectRetries, ConnectDelay, zapLog, "Inventory store connection")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.sql.Close() })
	zapLog.Info("Inventory store connected successfully", zap.String("driver", a.sql.Driver))

	// --- Init Redis with retry ---
	if cfg.Session.Backend == "redis" || cfg.Synthesis.CacheTTL > 0 {
		err = retryWithBackoff(func() error {
			a.redis = database.NewRedis(cfg.Database.Redis)
			if err := a.redis.Ping(ctx); err != nil {
				_ = a.redis.Close()
				return err
			}
			return nil
		}, ConnectRetries, ConnectDelay, zapLog, "Redis connection")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry ---
	recorders := audit.Multi{audit.NewLogRecorder(a.Log)}
	if cfg.Audit.Elasticsearch {
		err = retryWithBackoff(func() error {
			var err error
			a.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return a.es.Ping(ctx)
		}, ConnectRetries, ConnectDelay, zapLog, "Elasticsearch connection")
		if err != nil {
			a.Close()
			return nil, err
		}
		recorders = append(recorders, audit.NewElasticsearchRecorder(a.es.Client, cfg.Audit.Index, a.Log))
		zapLog.Info("Elasticsearch connected successfully")
	}

	store, err := a.sessionStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway, err := completion.New(ctx, cfg.Completion, a.Log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("completion gateway: %w", err)
	}

	if cfg.PlantAPI.BaseURL == "" {
		zapLog.Warn("plant_api.base_url is not set; diagnosis and identification will fail")
	}

	completionTimeout := config.GetDuration(cfg.Completion.Timeout)
	formatter := buildresponse.NewFormatter(buildresponse.LoadConfig())

	var cacheClient *redis.Client
	if a.redis != nil && cfg.Synthesis.CacheTTL > 0 {
		cacheClient = a.redis.Client
	}

	a.Dispatcher = assistant.NewDispatcher(
		assistant.Config{
			Schema:       schema,
			HistoryTurns: cfg.Session.HistoryTurns,
		},
		assistant.Components{
			Store: store,
			Router: routeintent.NewHandler(
				&routeintent.Config{Timeout: completionTimeout},
				gateway, a.Log,
			),
			Synthesizer: synthesizequery.NewHandler(
				&synthesizequery.Config{
					Model:       cfg.Completion.Model,
					Temperature: cfg.Completion.Temperature,
					Timeout:     completionTimeout,
					CacheTTL:    config.GetDuration(cfg.Synthesis.CacheTTL),
				},
				gateway, cacheClient, a.Log,
			),
			Executor: executequery.NewHandler(
				&executequery.Config{
					Timeout: config.GetDuration(cfg.Query.Timeout),
					MaxRows: cfg.Query.MaxRows,
				},
				a.sql.DB, recorders, a.Log,
			),
			Responder: freeformreply.NewHandler(
				&freeformreply.Config{
					Model:        cfg.Completion.Model,
					Temperature:  cfg.Completion.Temperature,
					Timeout:      completionTimeout,
					HistoryTurns: cfg.Session.HistoryTurns,
				},
				gateway, a.Log,
			),
			Flow: guidedflow.NewHandler(
				&guidedflow.Config{ImageTimeout: config.GetDuration(cfg.Bot.ImageTimeout)},
				plantapi.NewClient(cfg.PlantAPI.BaseURL, config.GetDuration(cfg.PlantAPI.Timeout), a.Log),
				webhook.NewHTTPImageSource(config.GetDuration(cfg.Bot.ImageTimeout)),
				formatter, a.Log,
			),
			Formatter: formatter,
			Obs:       a.obs,
		},
		a.Log,
	)

	return a, nil
}

func (a *App) sessionStore() (session.Store, error) {
	opts := session.Options{
		IdleTimeout: config.GetDuration(a.cfg.Session.IdleTimeout),
		MaxEntries:  a.cfg.Session.MaxEntries,
		KeyPrefix:   a.cfg.Session.KeyPrefix,
	}
	switch a.cfg.Session.Backend {
	case "redis":
		return session.NewRedisStore(a.redis.Client, opts), nil
	case "memory", "":
		return session.NewMemoryStore(opts)
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
	}
}

// ReadinessChecks lists the dependencies /ready probes.
func (a *App) ReadinessChecks() map[string]webhook.Check {
	checks := map[string]webhook.Check{
		"database": a.sql.Ping,
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	if a.es != nil {
		checks["elasticsearch"] = a.es.Ping
	}
	return checks
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
