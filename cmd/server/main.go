package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"garage-backend/internal/auth"
	"garage-backend/internal/backup"
	"garage-backend/internal/cache"
	"garage-backend/internal/config"
	"garage-backend/internal/database"
	"garage-backend/internal/db"
	"garage-backend/internal/handlers"
	"garage-backend/internal/health"
	h "garage-backend/internal/http"
	"garage-backend/internal/metrics"
	"garage-backend/internal/middleware"
	"garage-backend/internal/notify"
	"garage-backend/internal/ratelimit"
	"garage-backend/internal/realtime"
	"garage-backend/internal/repositories"
	"garage-backend/internal/services"
	"garage-backend/internal/session"
	"garage-backend/internal/timeutil"
	"garage-backend/migrations"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT secret is not configured (set JWT_SECRET)")
	}
	timeutil.SetLocation(cfg.Business.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Database unavailable: %v", err)
	}
	defer pool.Close()

	if err := database.NewMigratorWithFS(pool, migrations.FS, ".").RunMigrations(ctx); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	// Redis backs the realtime bus, token revocation and login rate limiting.
	// Without it the process falls back to in-memory equivalents.
	var (
		bus     realtime.Bus
		revoker auth.TokenRevoker
		limiter services.Limiter
	)
	if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[Redis] Unavailable at %s, running single-instance: %v", cfg.Redis.Addr, err)
		bus = realtime.NewLocalBus()
		revoker = auth.NewMemoryRevoker()
	} else {
		log.Printf("[Redis] Connected to %s", cfg.Redis.Addr)
		client := cache.GetClient()
		bus = realtime.NewRedisBus(client)
		revoker = auth.NewRedisRevoker(client)
		loginLimiter, err := ratelimit.NewFixedWindowLimiter(client, "garage:login", cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
		if err != nil {
			log.Printf("[Auth] Login rate limiting disabled: %v", err)
		} else {
			limiter = loginLimiter
		}
	}
	defer cache.Close()

	// Repositories
	clientRepo := repositories.NewClientRepository(pool)
	serviceRepo := repositories.NewServiceRepository(pool)
	eventRepo := repositories.NewEventRepository(pool)
	profileRepo := repositories.NewProfileRepository(pool)
	userRepo := repositories.NewUserRepository(pool)
	settingRepo := repositories.NewSettingRepository(pool)

	sessions := session.NewController(profileRepo, cfg.Auth.ProfileFetchTimeout)
	sessions.OnFallback(metrics.ProfileFetchFallbacks.Inc)

	publisher := realtime.NewPublisher(bus)

	var notifier services.AppointmentNotifier = notify.LogNotifier{}
	if cfg.Notify.AMQPURL != "" {
		amqpNotifier, err := notify.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.Queue)
		if err != nil {
			log.Printf("[Notify] Broker unavailable, logging notifications only: %v", err)
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
		}
	}

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	totpService := services.NewTOTPService(userRepo, cfg.Auth.TOTPIssuer)
	authService := services.NewAuthService(userRepo, profileRepo, settingRepo, jwtManager, revoker, limiter, publisher, totpService)
	if err := authService.SeedSignupCode(ctx, cfg.Auth.SignupCode); err != nil {
		log.Printf("[Auth] Failed to seed signup code: %v", err)
	}
	clientService := services.NewClientService(clientRepo, publisher)
	catalogService := services.NewCatalogService(serviceRepo, publisher)
	teamService := services.NewTeamService(profileRepo, publisher)
	bookingService := services.NewBookingService(eventRepo, clientRepo, profileRepo, publisher, notifier)
	calendarService := services.NewCalendarService(eventRepo, serviceRepo, clientRepo)

	var backupService *backup.Service
	if cfg.Backup.Enabled {
		store, err := backup.NewS3Store(ctx, cfg)
		if err != nil {
			log.Printf("[Backup] Disabled: %v", err)
		} else {
			backupService = backup.NewService(clientRepo, serviceRepo, eventRepo, store)
		}
	}

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, revoker, sessions)
	apiLogging := middleware.NewAPILoggingMiddleware()
	defer apiLogging.Close()
	corsMiddleware := middleware.NewCORS(cfg)

	var redisPinger health.Pinger
	if client := cache.GetClient(); client != nil {
		redisPinger = health.RedisPinger{Client: client}
	}

	fetchers := map[string]realtime.Fetcher{
		realtime.TableClients:  func(ctx context.Context) (interface{}, error) { return clientRepo.List(ctx) },
		realtime.TableServices: func(ctx context.Context) (interface{}, error) { return serviceRepo.List(ctx) },
		realtime.TableEvents:   func(ctx context.Context) (interface{}, error) { return eventRepo.List(ctx) },
		realtime.TableProfiles: func(ctx context.Context) (interface{}, error) { return profileRepo.List(ctx) },
	}

	title := strings.TrimSpace(cfg.Business.NamePart1 + " " + cfg.Business.NamePart2)
	router := h.NewRouter(h.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Session:  handlers.NewSessionHandler(sessions),
		TOTP:     handlers.NewTOTPHandler(totpService),
		Clients:  handlers.NewClientHandler(clientService),
		Catalog:  handlers.NewCatalogHandler(catalogService),
		Team:     handlers.NewTeamHandler(teamService),
		Calendar: handlers.NewCalendarHandler(calendarService, bookingService, title),
		AppInfo:  handlers.NewAppInfoHandler(cfg),
		Backup:   handlers.NewBackupHandler(backupService),
		Health:   handlers.NewHealthHandler(health.NewHealthChecker(pool, redisPinger)),
		Realtime: realtime.NewHandler(bus, authMiddleware, sessions, fetchers),
	}, authMiddleware)

	// Wrap with panic recovery, request logging and CORS
	handler := middleware.PanicRecovery(apiLogging.Handler(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server running on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if backupService != nil {
		g.Go(func() error {
			backupService.Schedule(gctx, cfg.Backup.Interval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}
