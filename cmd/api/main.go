package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/events"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/router"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/session"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-haven-core/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist"
	waitlistrepo "github.com/ovaphlow/pitchfork/service-haven-core/internal/waitlist/repo"
	"github.com/ovaphlow/pitchfork/service-haven-core/pkg/database"
	"github.com/ovaphlow/pitchfork/service-haven-core/pkg/utilities"
)

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-haven-core")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(os.Getenv("CATALOG_PATH"))
	if err != nil {
		sugar.Fatalf("load catalog: %v", err)
	}

	var (
		userStore     user.Store     = userrepo.NewMemoryRepo()
		waitlistStore waitlist.Store = waitlistrepo.NewMemoryRepo()
		closeDB                      = func() error { return nil }
	)
	var pingDB func(context.Context) error
	if dbCfg := database.ConfigFromEnv(); dbCfg.Enabled() {
		db, err := database.Connect(ctx, dbCfg)
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		ur := userrepo.NewUserRepo(db)
		wr := waitlistrepo.NewWaitlistRepo(db)
		if err := ur.EnsureTable(ctx); err != nil {
			sugar.Fatalf("ensure users table: %v", err)
		}
		if err := wr.EnsureTable(ctx); err != nil {
			sugar.Fatalf("ensure waitlist table: %v", err)
		}
		userStore, waitlistStore = ur, wr
		closeDB, pingDB = db.Close, db.PingContext
		sugar.Info("using postgres stores")
	} else {
		sugar.Warn("DATABASE_URL not set; users and waitlist are kept in memory")
	}
	defer closeDB()

	secret := []byte(os.Getenv("SESSION_SECRET"))
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		sugar.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}
	ttl, _ := time.ParseDuration(os.Getenv("SESSION_TTL"))
	sessions, err := session.NewManager(secret, "haven", ttl)
	if err != nil {
		sugar.Fatalf("session manager: %v", err)
	}

	ledger, err := subscription.NewLedger(cat.FounderCap(), cat.FounderSlots())
	if err != nil {
		sugar.Fatalf("founder ledger: %v", err)
	}

	publisher := newPublisher(sugar)
	defer publisher.Close()

	wl := waitlist.NewService(waitlistStore)
	flow, err := onboarding.NewFlow(onboarding.Deps{
		Users:     user.NewUserService(userStore, nil),
		Catalog:   cat,
		Sessions:  sessions,
		Ledger:    ledger,
		Waitlist:  wl,
		Publisher: publisher,
		Logger:    sugar,
	})
	if err != nil {
		sugar.Fatalf("onboarding flow: %v", err)
	}

	handler := router.RegisterRoutes(sugar, router.Handlers{
		Onboarding: onboarding.NewHandler(flow, sugar),
		Catalog:    catalog.NewHandler(cat, ledger, wl, sugar),
	})
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingDB != nil {
		if err := pingDB(doneCtx); err != nil {
			sugar.Warnf("db ping on shutdown failed: %v", err)
		}
	}

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// newPublisher picks Kafka when KAFKA_BROKER is set and the log otherwise.
func newPublisher(logger *zap.SugaredLogger) events.Publisher {
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		return events.NewLogPublisher(logger)
	}
	p, err := events.NewKafkaPublisher(events.KafkaConfig{
		Broker:   broker,
		Topic:    os.Getenv("KAFKA_TOPIC"),
		Username: os.Getenv("KAFKA_USERNAME"),
		Password: os.Getenv("KAFKA_PASSWORD"),
	})
	if err != nil {
		logger.Warnw("kafka publisher unavailable; logging events instead", "err", err)
		return events.NewLogPublisher(logger)
	}
	logger.Infow("publishing onboarding events to kafka", "broker", broker)
	return p
}
