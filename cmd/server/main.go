package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/config"
	"github.com/readypixelgo/venue-booking/internal/database"
	"github.com/readypixelgo/venue-booking/internal/handler"
	"github.com/readypixelgo/venue-booking/internal/middleware"
	"github.com/readypixelgo/venue-booking/internal/notify"
	"github.com/readypixelgo/venue-booking/internal/payment"
	"github.com/readypixelgo/venue-booking/internal/pricing"
	"github.com/readypixelgo/venue-booking/internal/queue"
	"github.com/readypixelgo/venue-booking/internal/realtime"
	"github.com/readypixelgo/venue-booking/internal/repository"
	"github.com/readypixelgo/venue-booking/internal/router"
	"github.com/readypixelgo/venue-booking/internal/scheduler"
	"github.com/readypixelgo/venue-booking/internal/service"
	"github.com/readypixelgo/venue-booking/internal/utils"
)

func main() {
	// a missing .env is fine; the environment may already be populated
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DSN())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var feed realtime.Feed
	if rdb != nil {
		defer rdb.Close()
		feed = realtime.NewRedisFeed(rdb)
	} else {
		logger.Warn("redis unavailable: rate limiting disabled, live updates limited to this instance")
		feed = realtime.NewLocalFeed()
	}

	loc := cfg.Location()
	cal := service.Calendar{Loc: loc, HorizonMonths: cfg.HorizonMonths, Now: time.Now}
	launch := pricing.LaunchCode{Code: cfg.LaunchCode, Percent: cfg.LaunchDiscountPercent, LastDay: cfg.LaunchExpiry()}

	bookings := repository.NewBookingRepo(db)
	overrides := repository.NewOverrideRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
		ReplyTo:  cfg.HostEmail,
	})
	confirmer := notify.NewConfirmer(bookings, mailer, logger, loc, cfg.PublicSiteURL, cfg.HostEmail)

	var notifier service.Notifier = confirmer
	if cfg.AMQPURL != "" {
		notifier = queue.NewPublisher(cfg.AMQPURL, logger)
		consumer := queue.NewConsumer(cfg.AMQPURL, func(ctx context.Context, ev queue.BookingConfirmedEvent) error {
			return confirmer.SendBookingConfirmation(ctx, ev.BookingID)
		}, logger)
		go consumer.Run(ctx)
	}

	checkout := payment.NewStripeProvider(cfg.StripeSecretKey)
	access := utils.NewAccessCode(cfg.AdminAccessCode, cfg.AdminAccessCodeHash)
	tokens := utils.NewUnsubscribeTokens(cfg.UnsubscribeSecret, utils.DefaultUnsubscribeTTL)

	reaper := service.NewReaper(bookings, feed, cfg.BookingHold, cfg.PendingRetention, time.Now, logger)
	availability := service.NewAvailabilityService(bookings, overrides, reaper, cal, logger)
	reservations := service.NewReservationService(service.ReservationDeps{
		Bookings:     bookings,
		Availability: availability,
		Reaper:       reaper,
		Checkout:     checkout,
		Changes:      feed,
		Launch:       launch,
		Calendar:     cal,
		Currency:     cfg.CheckoutCurrency,
		SiteURL:      cfg.PublicSiteURL,
		Log:          logger,
	})
	verifier := service.NewPaymentVerifier(bookings, checkout, notifier, feed, logger)
	waitlist := service.NewWaitlistService(service.WaitlistDeps{
		Store:    waitlistRepo,
		Mailer:   mailer,
		Tokens:   tokens,
		Launch:   launch,
		MaxCodes: cfg.LaunchMaxCodes,
		SiteURL:  cfg.PublicSiteURL,
		Now:      time.Now,
		Log:      logger,
	})
	admin := service.NewAdminService(service.AdminDeps{
		Access:       access,
		Bookings:     bookings,
		Overrides:    overrides,
		Availability: availability,
		Reaper:       reaper,
		Waitlist:     waitlist,
		Changes:      feed,
		Calendar:     cal,
		Log:          logger,
	})

	sweeper, err := scheduler.StartSweep(loc, cfg.SweepInterval, reaper, logger)
	if err != nil {
		logger.Fatal("could not schedule retention sweep", zap.Error(err))
	}
	defer func() { _ = sweeper.Shutdown() }()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.PublicSiteURL},
		AllowHeaders: []string{echo.HeaderContentType, middleware.AdminCodeHeader},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	}))

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	router.RegisterRoutes(e, cfg.Secrets())
	router.RegisterPublic(e,
		handler.NewPublicHandler(availability, reservations, verifier, waitlist, logger),
		handler.NewLiveHandler(availability, feed, cfg.PublicSiteURL, logger),
		limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(admin, logger))

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return l
}
