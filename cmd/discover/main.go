package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kosherdirectory/discovery/internal/adapters/cache"
	"github.com/kosherdirectory/discovery/internal/adapters/catalog"
	"github.com/kosherdirectory/discovery/internal/adapters/database"
	"github.com/kosherdirectory/discovery/internal/application/services"
	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/providers"
	"github.com/kosherdirectory/discovery/internal/domain/repositories"
	"github.com/kosherdirectory/discovery/internal/infrastructure/clients/postgres"
	"github.com/kosherdirectory/discovery/internal/infrastructure/clients/redis"
	"github.com/kosherdirectory/discovery/internal/infrastructure/observability"
	"github.com/kosherdirectory/discovery/pkg/config"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "kosher-discovery:"

type options struct {
	catalogPath string
	statusID    string
	at          string
	warm        bool
	warmEvery   time.Duration
	lat, lng    float64
	hasLocation bool
	criteria    entities.FilterCriteria
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	opts := parseFlags(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		log.Error().Err(err).Msg("Discovery failed")
		stop()
		os.Exit(1)
	}
}

func parseFlags(cfg *config.Config) options {
	var opts options
	flag.StringVar(&opts.catalogPath, "catalog", "", "restaurant catalog JSON file (reads PostgreSQL when empty)")
	flag.StringVar(&opts.statusID, "status", "", "print the availability of a single restaurant id")
	flag.StringVar(&opts.at, "at", "", "evaluate at this RFC 3339 instant instead of now")
	flag.BoolVar(&opts.warm, "warm", false, "parse and cache the hours of the whole catalog before answering")
	flag.DurationVar(&opts.warmEvery, "warm-interval", 0, "keep running and re-warm the schedule cache at this interval until interrupted")
	flag.StringVar(&opts.criteria.SearchText, "q", "", "free-text search")
	flag.StringVar(&opts.criteria.Agency, "agency", "", "certifying agency, or \"all\"")
	flag.StringVar(&opts.criteria.Dietary, "dietary", "", "dietary category (meat, dairy, pareve, ...), or \"all\"")
	flag.StringVar(&opts.criteria.Category, "category", "", "cuisine category, or \"all\"")
	flag.BoolVar(&opts.criteria.OpenNow, "open-now", false, "only restaurants open at the evaluation instant")
	flag.BoolVar(&opts.criteria.NearMe, "near-me", false, "only restaurants within -radius of -lat/-lng")
	flag.Float64Var(&opts.criteria.RadiusMiles, "radius", cfg.Engine.DefaultRadiusMiles, "near-me radius in miles")
	flag.Float64Var(&opts.lat, "lat", 0, "user latitude")
	flag.Float64Var(&opts.lng, "lng", 0, "user longitude")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lng" {
			opts.hasLocation = true
		}
	})
	return opts
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	now := time.Now().UTC()
	if opts.at != "" {
		at, err := time.Parse(time.RFC3339, opts.at)
		if err != nil {
			return fmt.Errorf("invalid -at value: %w", err)
		}
		now = at.UTC()
	}

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Metrics disabled")
	}

	repo, closeRepo, err := openRepository(ctx, cfg, opts.catalogPath)
	if err != nil {
		return err
	}
	defer closeRepo()

	scheduleCache, closeCache, err := openScheduleCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	missingDay := services.MissingDayAsClosed
	if cfg.Engine.MissingDayPolicy == config.MissingDayUnknown {
		missingDay = services.MissingDayAsUnknown
	}
	nearMe := services.NearMeRejectAll
	if cfg.Engine.NearMeWithoutLocation == config.NearMeError {
		nearMe = services.NearMeValidationError
	}

	engine := services.NewAvailabilityEngine(
		services.NewHoursParser(),
		services.NewTimezoneResolver(),
		scheduleCache,
		services.WithMissingDayPolicy(missingDay),
		services.WithMetrics(metrics),
	)
	svc := services.NewDiscoveryService(repo, engine,
		services.WithNearMePolicy(nearMe),
		services.WithSearchMetrics(metrics),
	)

	warmer := services.NewScheduleWarmingService(repo, engine)
	if opts.warmEvery != 0 {
		if err := warmer.StartPeriodicWarming(ctx, opts.warmEvery); err != nil {
			return err
		}
		log.Info().Dur("interval", opts.warmEvery).Msg("Warming schedule cache until interrupted")
		<-ctx.Done()
		return nil
	}
	if opts.warm {
		if _, err := warmer.WarmSchedules(ctx); err != nil {
			return err
		}
	}

	if opts.statusID != "" {
		status, err := svc.Status(ctx, opts.statusID, now)
		if err != nil {
			return err
		}
		return writeJSON(status)
	}

	var location *entities.GeoPoint
	if opts.hasLocation {
		location = &entities.GeoPoint{Latitude: opts.lat, Longitude: opts.lng}
	}
	results, err := svc.Search(ctx, opts.criteria, location, now)
	if err != nil {
		return err
	}
	return writeJSON(results)
}

func openRepository(ctx context.Context, cfg *config.Config, catalogPath string) (repositories.RestaurantRepository, func(), error) {
	if catalogPath != "" {
		repo, err := catalog.NewJSONFileAdapter(catalogPath)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("path", catalogPath).Msg("Using catalog file")
		return repo, func() {}, nil
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	return database.NewRestaurantAdapter(pgClient), func() { pgClient.Close() }, nil
}

func openScheduleCache(ctx context.Context, cfg *config.Config) (providers.ScheduleCache, func(), error) {
	local, err := cache.NewMemoryScheduleCache(cfg.Engine.CacheSize, cfg.Engine.CacheTTL(), providers.SystemClock{})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Engine.CacheBackend != config.CacheBackendRedis {
		return local, func() {}, nil
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		// The engine works without a shared cache
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory schedule cache only")
		return local, func() {}, nil
	}
	remote := cache.NewRedisAdapter(redisClient, redisKeyPrefix)
	return cache.NewTieredScheduleCache(local, remote), func() { redisClient.Close() }, nil
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
