package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "github.com/lib/pq"

	"github.com/blueteamalpha/prospector/internal/campaign"
	"github.com/blueteamalpha/prospector/internal/config"
	"github.com/blueteamalpha/prospector/internal/pipeline"
	"github.com/blueteamalpha/prospector/internal/pkg/distlock"
	"github.com/blueteamalpha/prospector/internal/registry"
	"github.com/blueteamalpha/prospector/internal/repository/memory"
	"github.com/blueteamalpha/prospector/internal/repository/postgres"
	"github.com/blueteamalpha/prospector/internal/scheduler"
	"github.com/blueteamalpha/prospector/internal/scoring"
	"github.com/blueteamalpha/prospector/internal/segment"
)

func main() {
	log.Println("Starting prospect pipeline worker...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Invalid Redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("Failed to ping Redis: %v", err)
	}
	cancel()

	var (
		regRepo   registry.Repository
		prospects pipeline.ProspectStore
		messages  scheduler.MessageStore
	)
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)

		initCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(initCtx); err != nil {
			cancel()
			log.Fatalf("Failed to ping database: %v", err)
		}
		if err := postgres.EnsureSchema(initCtx, db); err != nil {
			cancel()
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		cancel()

		regRepo = postgres.NewRegistryRepo(db)
		prospects = postgres.NewProspectRepo(db)
		messages = postgres.NewMessageRepo(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory repositories")
		store := memory.NewStore()
		regRepo, prospects, messages = store, store, store
	}

	reg := registry.NewService(regRepo)

	loc, _ := time.LoadLocation(cfg.Outreach.Timezone)
	caps := scheduler.NewSendCaps(redisClient, scheduler.CapLimits{
		Daily:      cfg.Outreach.DailyCap,
		PerOrg:     cfg.Outreach.PerOrgCap,
		PerContact: cfg.Outreach.PerContactCap,
	})
	deliverer := scheduler.NewHTTPDeliverer(
		cfg.Delivery.Endpoint,
		cfg.Delivery.SigningSecret,
		time.Duration(cfg.Delivery.TimeoutSeconds)*time.Second,
		cfg.Delivery.RetryBudget,
		time.Duration(cfg.Delivery.BackoffBaseMs)*time.Millisecond,
	)
	sched := scheduler.New(caps, deliverer, messages,
		scheduler.Timing{BusinessHour: cfg.Outreach.BusinessHour, Location: loc},
		cfg.Delivery.RetryBudget)

	restoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if n, err := sched.Restore(restoreCtx); err != nil {
		log.Printf("Failed to restore pending messages: %v", err)
	} else if n > 0 {
		log.Printf("Restored %d pending messages", n)
	}
	cancel()

	pl := pipeline.New(reg, prospects, pipeline.FallbackContacts{},
		campaign.NewGenerator(cfg.Outreach.MaxContacts), sched,
		pipeline.Options{
			Weights: scoring.Weights{
				DwellTime:         cfg.Scoring.Weights.DwellTime,
				SkillsGap:         cfg.Scoring.Weights.SkillsGap,
				AfterHours:        cfg.Scoring.Weights.AfterHours,
				InsurancePressure: cfg.Scoring.Weights.InsurancePressure,
				BreachCost:        cfg.Scoring.Weights.BreachCost,
			},
			Thresholds: segment.Thresholds{
				BreachWindowDays:   cfg.Segments.BreachWindowDays,
				SkillsGapThreshold: cfg.Segments.SkillsGapThreshold,
				InsuranceThreshold: cfg.Segments.InsuranceThreshold,
				DwellThreshold:     cfg.Segments.DwellThreshold,
				SmallBusinessMax:   cfg.Segments.SmallBusinessMax,
			},
			Cooldown:    cfg.Scoring.Cooldown(),
			Concurrency: cfg.Pipeline.Concurrency,
			CycleLock:   distlock.NewRedisLock(redisClient, "scoring-cycle", 10*time.Minute),
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.Pipeline.IntervalMinutes) * time.Minute
	log.Printf("Running scoring cycles every %s", interval)
	pl.Run(ctx, interval)

	log.Println("Worker stopped")
}
