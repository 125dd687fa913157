package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rootseed/pos-otp-relay/internal/cache"
	"github.com/rootseed/pos-otp-relay/internal/config"
	"github.com/rootseed/pos-otp-relay/internal/logging"
	"github.com/rootseed/pos-otp-relay/internal/rate"
	"github.com/rootseed/pos-otp-relay/internal/repository/memory"
	miniorepo "github.com/rootseed/pos-otp-relay/internal/repository/minio"
	mongorepo "github.com/rootseed/pos-otp-relay/internal/repository/mongo"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
	"github.com/rootseed/pos-otp-relay/internal/repository/postgres"
	"github.com/rootseed/pos-otp-relay/internal/service"
	"github.com/rootseed/pos-otp-relay/internal/transport/mail"
	httpx "github.com/rootseed/pos-otp-relay/internal/transport/http"
	"github.com/rootseed/pos-otp-relay/internal/util"
)

func main() {
	cfg := config.Load()

	var sink zapcore.WriteSyncer
	var shipper *logging.LogstashWriter
	if cfg.LogstashTCPAddr != "" {
		w, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			zap.NewExample().Warn("logstash disabled", zap.Error(err))
		} else {
			sink, shipper = w, w
			defer w.Close()
		}
	}
	logger := logging.New(cfg.LogLevel, sink)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer cleanup()

	var limiter service.RequestLimiter
	if cfg.RedisAddr != "" {
		c := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPassword, false)
		if err := c.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, otp requests are not rate limited", zap.Error(err))
		} else {
			limiter = rate.NewLimiter(c, cfg.OTPWindow, cfg.OTPMaxPerWindow, cfg.OTPCooldown)
		}
		defer c.Close()
	}

	relay := service.NewRelayService(stores.messages, limiter, logger, service.RelayConfig{
		RequestTTL: cfg.RelayRequestTTL,
		OTPTTL:     cfg.RelayOTPTTL,
	})

	mailer := mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPUseTLS)
	if !cfg.SMTPEnabled() {
		logger.Warn("smtp not configured, emailed codes cannot be delivered")
	}
	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	auth := service.NewAuthService(stores.users, stores.sessions, stores.resets, relay, mailer, jwtManager, logger, service.AuthConfig{
		ResetTTL:       cfg.PasswordResetTTL,
		ResetOTPLength: cfg.PasswordResetOTPLength,
		AdminOTPTTL:    cfg.AdminOTPTTL,
	})

	if cfg.SeedDefaults {
		err := auth.SeedDefaults(ctx,
			service.SeedAccount{Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPass, Name: "Default Admin"},
			service.SeedAccount{Email: cfg.SeedCashierMail, Password: cfg.SeedCashierPass, Name: "Default Cashier", CashierID: cfg.SeedCashierID},
		)
		if err != nil {
			logger.Fatal("seed default accounts", zap.Error(err))
		}
	}

	var archive *service.ArchiveService
	if cfg.MinIOEnabled() {
		client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			logger.Fatal("minio client", zap.Error(err))
		}
		storage := miniorepo.NewStorage(client, cfg.MinIOPublicURL)
		if err := storage.EnsureBucket(ctx, cfg.MinIOBucketArchive); err != nil {
			logger.Warn("ensure archive bucket", zap.String("bucket", cfg.MinIOBucketArchive), zap.Error(err))
		}
		archive = service.NewArchiveService(stores.messages, storage, cfg.MinIOBucketArchive)
	}

	var activity *service.ActivityService
	if cfg.ElasticsearchURL != "" {
		es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{cfg.ElasticsearchURL}})
		if err != nil {
			logger.Warn("elasticsearch disabled", zap.Error(err))
		} else {
			activity = service.NewActivityService(es, service.ActivityConfig{
				LogIndex:       cfg.RelayLogIndex,
				RequestTimeout: 5 * time.Second,
			})
		}
	}

	e := httpx.NewRouter(httpx.RouterConfig{
		AllowOrigins: cfg.AllowOrigins,
		Logger:       logger,
		Ready:        stores.ping,
	})
	httpx.RegisterSwagger(e)
	httpx.RegisterAuth(e, auth)
	httpx.RegisterMessages(e, auth, relay)
	httpx.RegisterRelay(e, auth, relay, archive, activity)

	go func() {
		logger.Info("listening", zap.String("port", cfg.Port), zap.String("message_store", cfg.MessageStore))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if shipper != nil {
		logger.Info("stopping logstash shipper", zap.Int64("dropped_entries", shipper.Dropped()))
	}
}

type stores struct {
	messages ports.MessageRepository
	users    ports.UserRepository
	sessions ports.SessionRepository
	resets   ports.PasswordResetRepository
	// ping checks the message backend; nil for the in-memory store.
	ping func(ctx context.Context) error
}

// openStores connects the configured message backend. Accounts and sessions
// live in postgres whenever DATABASE_URL is set and in memory otherwise.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, func(), error) {
	var s stores
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return s, cleanup, err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return s, cleanup, err
		}
		s.users = postgres.NewUserRepo(db)
		s.sessions = postgres.NewSessionRepo(db)
		s.resets = postgres.NewPasswordResetRepo(db)
		if cfg.MessageStore == config.StorePostgres {
			s.messages = postgres.NewMessageRepo(db)
			s.ping = db.PingContext
		}
	} else {
		logger.Warn("DATABASE_URL not set, accounts and sessions are kept in memory")
		s.users = memory.NewUserRepo()
		s.sessions = memory.NewSessionRepo()
		s.resets = memory.NewPasswordResetRepo()
	}

	switch cfg.MessageStore {
	case config.StoreMongo:
		db, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return s, cleanup, err
		}
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(ctx)
		})
		s.messages = mongorepo.NewMessageRepo(db)
		s.ping = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
	case config.StoreMemory:
		s.messages = memory.NewMessageRepo()
	}
	return s, cleanup, nil
}
