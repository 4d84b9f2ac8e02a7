package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/reservaplay/facility-booking/internal/config"
	"github.com/reservaplay/facility-booking/internal/database"
	"github.com/reservaplay/facility-booking/internal/handler"
	"github.com/reservaplay/facility-booking/internal/payment"
	"github.com/reservaplay/facility-booking/internal/queue"
	"github.com/reservaplay/facility-booking/internal/repository"
	"github.com/reservaplay/facility-booking/internal/router"
	"github.com/reservaplay/facility-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	facilityRepo := repository.NewFacilityRepo(db)
	templateRepo := repository.NewBlockTemplateRepo(db)
	instanceRepo := repository.NewBlockInstanceRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	gateway := payment.New(cfg.GatewayBaseURL, payment.Credentials{
		CommerceCode: cfg.GatewayCommerceCode,
		APIKey:       cfg.GatewayAPIKey,
	})
	notifier := &service.QueuePublisher{}

	booking := service.NewBookingService(
		instanceRepo, reservationRepo, paymentRepo, gateway, notifier,
		cfg.DailyLimit, cfg.BaseURL+"/v1/payments/confirm",
		time.Duration(cfg.PendingTTLMin)*time.Minute,
	)
	blocks := service.NewBlockService(templateRepo, instanceRepo, facilityRepo)

	// Consumer of reservation.confirmed events; reconnects on its own.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("rabbitmq consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()

	e := echo.New()
	router.RegisterRoutes(e, router.Handlers{
		Blocks:       handler.NewBlockHandler(blocks, instanceRepo),
		Templates:    handler.NewTemplateHandler(templateRepo),
		Reservations: handler.NewReservationHandler(booking),
		Payments:     handler.NewPaymentHandler(booking),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
