package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/docgate/internal/application"
	appchat "github.com/bryanwahyu/docgate/internal/application/chat"
	appingest "github.com/bryanwahyu/docgate/internal/application/ingest"
	"github.com/bryanwahyu/docgate/internal/config"
	"github.com/bryanwahyu/docgate/internal/domain/analytics"
	"github.com/bryanwahyu/docgate/internal/domain/guardrail"
	domingest "github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/persona"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
	openaiClient "github.com/bryanwahyu/docgate/internal/infra/ai/openai"
	memdb "github.com/bryanwahyu/docgate/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/docgate/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/docgate/internal/infra/db/postgres"
	"github.com/bryanwahyu/docgate/internal/infra/extract"
	"github.com/bryanwahyu/docgate/internal/infra/httpserver"
	"github.com/bryanwahyu/docgate/internal/infra/kv"
	"github.com/bryanwahyu/docgate/internal/infra/memstore"
	minioStore "github.com/bryanwahyu/docgate/internal/infra/storage"
	"github.com/bryanwahyu/docgate/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	health := make(map[string]middleware.HealthChecker)

	// analytics repo: driver pilihan, memory kalau tanpa database
	var events analytics.Repository
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		events = mysqlp.NewAnalyticsRepository(db)
		health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		events = postgresp.NewAnalyticsRepository(db)
		health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		events = memdb.NewAnalyticsRepository()
	}

	// init minio, optional: tanpa endpoint raw bytes tidak disimpan
	var blobs domingest.BlobStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		blobs = store
	}

	// init AI client; tanpa API key vision route tetap jalan dengan marker gagal
	var vision domingest.VisionExtractor
	var completer appchat.Completer
	ai, err := openaiClient.NewClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.VisionModel,
		cfg.OpenAI.ChatModel,
	)
	if err != nil {
		if errors.Is(err, domingest.ErrVisionUnavailable) {
			log.Println("no OpenAI API key configured, vision extraction unavailable")
		} else {
			log.Fatalf("openai init error: %v", err)
		}
	} else {
		vision = ai
		completer = ai
	}

	// persona selection store: redis kalau ada, memory kalau tidak
	var selections persona.KeyValue
	if cfg.Redis.Addr != "" {
		rds, err := kv.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "docgate:")
		if err != nil {
			log.Fatalf("redis connect error: %v", err)
		}
		defer rds.Close()
		selections = rds
		health["redis"] = middleware.CheckerFunc(func(ctx context.Context) error {
			_, _, err := rds.Get(ctx, "healthcheck")
			return err
		})
	} else {
		selections = kv.NewMemory()
	}

	bus := persona.NewBus()
	bus.Subscribe(func(e persona.SelectionEvent) {
		log.Printf("persona selected tenant=%s persona=%s", e.Tenant, e.Persona)
	})
	personas := persona.NewRegistry(selections, bus)

	manifests := memstore.NewStore()
	visionTimeout := time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second

	ingestSvc := &appingest.Service{
		Manifest:      manifests,
		Blobs:         blobs,
		Text:          extract.New(),
		Vision:        vision,
		Clock:         application.SystemClock{},
		VisionTimeout: visionTimeout,
		VisionTries:   cfg.OpenAI.MaxRetries,
		Concurrency:   cfg.Ingest.Concurrency,
	}

	chatSvc := &appchat.Service{
		Manifest:   manifests,
		Classifier: guardrail.NewClassifier(),
		Completer:  completer,
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Ingest:       ingestSvc,
		Chat:         chatSvc,
		Personas:     personas,
		Analytics:    events,
		Resolver:     tenancy.NewResolver(),
		Health:       health,
		APIKeys:      cfg.Auth.APIKeys,
		RateCapacity: cfg.RateLimit.Capacity,
		RateRefill:   cfg.RateLimit.RefillRate,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
