package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/legacycamp/camp-api/internal/api"
	"github.com/legacycamp/camp-api/internal/auth"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/pkg/distlock"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
	"github.com/legacycamp/camp-api/internal/repository/postgres"
	"github.com/legacycamp/camp-api/internal/service/notification"
	"github.com/legacycamp/camp-api/internal/service/registration"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// withConnectTimeout appends a connect timeout to the DSN unless one is set.
func withConnectTimeout(dsn string) string {
	if strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "connect_timeout=5"
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	dsn := withConnectTimeout(cfg.URL)
	log.Printf("[DB] Connecting to ...@%s/...", extractHost(dsn))

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Lifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// openRedis connects when REDIS_URL is set. Without Redis the bulk lock
// falls back to a PG advisory lock.
func openRedis(url string) *redis.Client {
	if url == "" {
		log.Println("[Redis] Not configured; using PG advisory locks")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Redis] WARNING: connection failed: %v; using PG advisory locks", err)
		client.Close()
		return nil
	}
	log.Println("[Redis] Connected (distributed locking enabled)")
	return client
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	log.Printf("Legacy Camp API starting (environment=%s)", cfg.Environment)

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	rdb := openRedis(cfg.Redis.URL)
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mail stack. A provider with missing credentials still starts; every
	// send then fails and is reported per request.
	provider, selection := mailing.NewProvider(ctx, cfg)
	go mailing.SelfCheck(ctx, provider, mailing.SelfCheckPolicy)

	renderer := mailing.MustRenderer(mailing.RendererOptions{
		EscapeCustomMessages: cfg.Mail.EscapeCustomMessages,
	})
	deliverer := mailing.NewDeliverer(provider, renderer,
		mailing.Sender{Name: cfg.Mail.FromName, Address: cfg.Mail.FromAddress},
		mailing.WithRetryPolicy(mailing.DefaultRetryPolicy(selection.Provider, cfg.Mail.MaxAttempts)),
		mailing.WithAttachments(mailing.NewContractLoader(cfg.Contract, nil)),
	)

	registrations := registration.NewService(postgres.NewRegistrationRepo(db))
	notifications := notification.NewService(registrations, deliverer, cfg.Payment,
		notification.WithBulkLock(func() distlock.DistLock {
			return distlock.NewLock(rdb, db, notification.BulkLockKey, notification.BulkLockTTL)
		}),
	)

	var consent api.ConsentService
	if cfg.Mail.Gmail.ClientID != "" {
		consent = auth.NewConsentManager(cfg.Mail.Gmail, auth.ConsentOptions{})
	}

	handlers := api.NewHandlers(api.Deps{
		Config:        cfg,
		Registrations: registrations,
		Notifications: notifications,
		Consent:       consent,
		Selection:     selection,
		Health:        api.NewHealthChecker(db, rdb, provider),
	})
	server := api.NewServer(cfg.Server, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if r, ok := provider.(mailing.Recycler); ok {
		if err := r.Recycle(); err != nil {
			log.Printf("[Mail] close error: %v", err)
		}
	}

	log.Println("Server stopped")
}
