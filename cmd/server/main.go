package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	affiliationstore "agentsid/internal/affiliation/store"
	collabhandler "agentsid/internal/collaboration/handler"
	collabservice "agentsid/internal/collaboration/service"
	collabstore "agentsid/internal/collaboration/store"
	endorsementhandler "agentsid/internal/endorsement/handler"
	endorsementservice "agentsid/internal/endorsement/service"
	endorsementstore "agentsid/internal/endorsement/store"
	httpapi "agentsid/internal/http"
	"agentsid/internal/platform/config"
	"agentsid/internal/platform/email"
	"agentsid/internal/platform/httpserver"
	"agentsid/internal/platform/logger"
	"agentsid/internal/platform/metrics"
	"agentsid/internal/platform/middleware"
	platformredis "agentsid/internal/platform/redis"
	profilehandler "agentsid/internal/profile/handler"
	profileservice "agentsid/internal/profile/service"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/ratelimit"
	"agentsid/internal/reputation"
	"agentsid/internal/session"
	"agentsid/internal/verification/code"
	"agentsid/internal/verification/domains"
	verificationhandler "agentsid/internal/verification/handler"
	"agentsid/internal/verification/oauth"
	"agentsid/internal/verification/social"
	"agentsid/pkg/platform/audit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.NewFromEnv()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	met := metrics.New()

	// Postgres is optional: an empty DSN selects the in-memory stores so the
	// service can run locally with zero infrastructure.
	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		if err := db.Ping(); err != nil {
			return err
		}
		defer db.Close()
		log.Info("connected to postgres")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var (
		profiles     profilestore.Store
		codes        code.Store
		collabs      collabstore.Store
		endorsements endorsementstore.Store
		affiliations affiliationstore.Store
	)
	if db != nil {
		profiles = profilestore.NewPostgres(db)
		codes = code.NewPostgres(db)
		collabs = collabstore.NewPostgres(db)
		endorsements = endorsementstore.NewPostgres(db)
		affiliations = affiliationstore.NewPostgres(db)
	} else {
		profiles = profilestore.NewMemory()
		codes = code.NewMemory()
		collabs = collabstore.NewMemory()
		endorsements = endorsementstore.NewMemory()
		affiliations = affiliationstore.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("connected to redis")
	}

	var limitStore ratelimit.Store
	if redisClient != nil {
		limitStore = ratelimit.NewRedis(redisClient.Client)
	} else {
		limitStore = ratelimit.NewMemory()
	}
	limiter := ratelimit.NewMiddleware(limitStore, log, ratelimit.WithMetrics(met))

	var auditPub audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := audit.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, audit.WithLogger(log))
		if err != nil {
			return err
		}
		defer kafkaPub.Close()
		auditPub = kafkaPub
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	} else {
		auditPub = audit.NewMemory()
		log.Warn("KAFKA_BROKERS not set, audit events are not persisted")
	}

	sessions, err := session.NewIssuer(cfg.JWTSigningKey, cfg.SessionTTL)
	if err != nil {
		return err
	}

	profileSvc, err := profileservice.New(profiles, profileservice.WithLogger(log))
	if err != nil {
		return err
	}
	engine, err := reputation.NewEngine(endorsements, profiles, reputation.WithLogger(log))
	if err != nil {
		return err
	}
	collabSvc, err := collabservice.New(collabs, profiles, cfg.CollabAPIKey, collabservice.WithLogger(log))
	if err != nil {
		return err
	}
	endorsementSvc, err := endorsementservice.New(endorsements, profiles, collabs, engine,
		endorsementservice.WithLogger(log),
		endorsementservice.WithMetrics(met),
	)
	if err != nil {
		return err
	}

	generator, err := code.NewGenerator(codes, code.WithLogger(log))
	if err != nil {
		return err
	}
	moltbook := social.NewClient(cfg.Moltbook, social.WithMetrics(met))
	socialVerifier, err := social.NewVerifier(codes, moltbook, profiles, sessions,
		social.WithLogger(log),
		social.WithVerifierMetrics(met),
		social.WithAudit(auditPub),
	)
	if err != nil {
		return err
	}

	oauthClient := oauth.NewClient(cfg.LinkedIn, oauth.WithMetrics(met))
	oauthSvc, err := oauth.New(oauthClient, profiles, sessions,
		oauth.WithLogger(log),
		oauth.WithServiceMetrics(met),
		oauth.WithAudit(auditPub),
	)
	if err != nil {
		return err
	}

	var sender email.Sender
	if cfg.Resend.APIKey != "" {
		sender = email.NewResend(cfg.Resend, email.WithMetrics(met))
	} else {
		sender = &email.MemorySender{}
		log.Warn("RESEND_API_KEY not set, verification emails are not delivered")
	}
	emailVerifier, err := domains.NewEmailVerifier(profiles, affiliations, codes, generator, sender,
		domains.WithEmailLogger(log),
		domains.WithEmailMetrics(met),
		domains.WithEmailAudit(auditPub),
	)
	if err != nil {
		return err
	}
	dnsVerifier, err := domains.NewDNSVerifier(profiles, affiliations,
		domains.WithDNSLogger(log),
		domains.WithDNSMetrics(met),
		domains.WithDNSAudit(auditPub),
	)
	if err != nil {
		return err
	}

	router := httpapi.New(httpapi.Config{
		Logger:   log,
		Auth:     middleware.NewAuth(sessions, log),
		Limiter:  limiter,
		Profiles: profilehandler.New(profileSvc, affiliations, collabSvc),
		Verification: verificationhandler.New(verificationhandler.Config{
			Generator:     generator,
			Profiles:      profiles,
			SocialVerify:  socialVerifier,
			OAuthService:  oauthSvc,
			OAuthClient:   oauthClient,
			EmailVerifier: emailVerifier,
			DNSVerifier:   dnsVerifier,
			SessionTTL:    cfg.SessionTTL,
			AppURL:        cfg.AppURL,
			SecureCookies: cfg.SecureCookies(),
		}),
		Endorsements:  endorsementhandler.New(endorsementSvc),
		Collaboration: collabhandler.New(collabSvc),
		Health:        healthChecker(db, redisClient),
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting agentsid", "addr", cfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func healthChecker(db *sql.DB, redisClient *platformredis.Client) func() map[string]string {
	return func() map[string]string {
		deps := map[string]string{}
		if db != nil {
			deps["postgres"] = "ok"
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := db.PingContext(ctx); err != nil {
				deps["postgres"] = "unreachable"
			}
			cancel()
		}
		if redisClient != nil {
			deps["redis"] = "ok"
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := redisClient.Health(ctx); err != nil {
				deps["redis"] = "unreachable"
			}
			cancel()
		}
		return deps
	}
}
