package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/promptplug/internal/logging"
	"github.com/aretw0/promptplug/pkg/adapters/file"
	httpAdapter "github.com/aretw0/promptplug/pkg/adapters/http"
	"github.com/aretw0/promptplug/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/promptplug/pkg/adapters/redis"
	"github.com/aretw0/promptplug/pkg/config"
	"github.com/aretw0/promptplug/pkg/metrics"
	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

// Station is a fully wired coordinator with its journal, metrics and HTTP API.
type Station struct {
	Config   config.Config
	Plug     *plug.Plug
	Journal  ports.Journal
	Streams  *httpAdapter.StreamManager
	Registry *prometheus.Registry
	Handler  http.Handler

	logger *slog.Logger
	redis  *goredis.Client
	locker *redisAdapter.Locker
	unlock ports.UnlockFunc
}

// NewStation builds the coordinator described by cfg. With redis configured
// the journal is persisted there and the station can be claimed exclusively;
// otherwise journal.path selects a file journal and the default is in memory.
func NewStation(cfg config.Config, logger *slog.Logger) (*Station, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st := &Station{
		Config:   cfg,
		Streams:  httpAdapter.NewStreamManager(logger),
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	// 1. Journal
	if cfg.Redis.Enabled() {
		st.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.Journal = redisAdapter.NewFromClient(st.redis,
			redisAdapter.WithPrefix(cfg.RedisPrefix()),
			redisAdapter.WithCapacity(cfg.Journal.Capacity),
			redisAdapter.WithTTL(cfg.Journal.TTL.Std()),
		)
		st.locker = redisAdapter.NewLocker(st.redis, cfg.RedisPrefix())
	} else if cfg.Journal.Path != "" {
		st.Journal = file.NewJournal(cfg.Journal.Path, cfg.Journal.Capacity)
	} else {
		st.Journal = memory.NewJournal(cfg.Journal.Capacity)
	}

	// 2. Metrics
	st.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(st.Registry)

	// 3. Coordinator
	st.Plug = plug.New(
		plug.WithLogger(logger),
		plug.WithUpdatePeriod(cfg.UpdatePeriod.Std()),
		plug.WithMaxDepth(cfg.MaxDepth),
		plug.WithObserver(collector),
		plug.WithJournal(st.Journal),
		plug.WithStateListener(st.Streams.Notify),
	)

	// 4. Transport
	st.Handler = httpAdapter.NewHandler(st.Plug,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithStreams(st.Streams),
		httpAdapter.WithStation(cfg.Station),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(st.Registry, promhttp.HandlerOpts{})),
	)

	return st, nil
}

// Claim takes the station lock so no other plugd serves the same station.
// It is a no-op without redis.
func (st *Station) Claim(ctx context.Context) error {
	if st.locker == nil {
		return nil
	}
	unlock, err := st.locker.Hold(ctx, st.Config.Station, st.Config.Redis.LockTTL.Std(), func(err error) {
		st.logger.Error("Station lock lost", "station", st.Config.Station, "error", err)
	})
	if err != nil {
		return fmt.Errorf("claim station %q: %w", st.Config.Station, err)
	}
	st.unlock = unlock
	st.logger.Info("Station claimed", "station", st.Config.Station)
	return nil
}

// Drain removes any active prompt, which releases pending answer long polls
// with 410, and ends all event streams. Serve calls it before Shutdown.
func (st *Station) Drain() {
	st.Plug.Teardown()
	st.Streams.Close()
}

// Close removes any active prompt, releases the station lock and closes redis.
func (st *Station) Close(ctx context.Context) error {
	st.Plug.Teardown()

	var errs []error
	if st.unlock != nil {
		errs = append(errs, st.unlock(ctx))
		st.unlock = nil
	}
	if st.redis != nil {
		errs = append(errs, st.redis.Close())
	}
	return errors.Join(errs...)
}

// NewLogger builds the application logger from the log section of the config.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "json" {
		return logging.NewJSON(w, level), nil
	}
	return logging.NewText(w, level), nil
}
