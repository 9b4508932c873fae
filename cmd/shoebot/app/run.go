package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/maximzom/shoebot/configs"
	"github.com/maximzom/shoebot/internal/adapter/cache"
	"github.com/maximzom/shoebot/internal/adapter/http"
	"github.com/maximzom/shoebot/internal/adapter/http/middleware"
	"github.com/maximzom/shoebot/internal/adapter/kafka"
	"github.com/maximzom/shoebot/internal/adapter/payment"
	"github.com/maximzom/shoebot/internal/adapter/queue"
	"github.com/maximzom/shoebot/internal/adapter/repo"
	"github.com/maximzom/shoebot/internal/logging"
	"github.com/maximzom/shoebot/internal/ratelimit"
	"github.com/maximzom/shoebot/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logFile := cfg.App.LogFile
	if logFile == "" {
		logFile = "./logs/app.log"
	}
	logging.Init(cfg.App.Name, logFile)
	log := logging.New("app")

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MySQL.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	}
	if cfg.MySQL.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	}
	if cfg.MySQL.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	cancel()

	log.Info("starting up")

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})

	// init rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}

	// infra
	orderRepo := repo.NewMySQLOrderRepo(db)
	sessionRepo := repo.NewMySQLSessionRepo(db)
	catalogRepo := repo.NewMySQLCatalogRepo(db)
	promoRepo := repo.NewMySQLPromoRepo(db)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	statusCache := cache.NewRedisCache(rdb, cfg.Cache.TTL)
	producer, err := queue.NewRabbitProducer(ch)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}

	// register queue-handler
	setupQueue(cfg, ch)

	// register kafka-listener
	setupKafkaListener(cfg, orderRepo, statusCache)

	// core
	validator := usecase.NewPromoValidator(promoRepo)
	machine := usecase.NewMachine(catalogRepo, validator, usecase.MachineConfig{
		MaxQuantity:  cfg.Shop.MaxQuantity,
		PhonePattern: cfg.Shop.PhonePattern,
		Currency:     cfg.Shop.Currency,
	})
	numbers := usecase.NewNumberAllocator()
	finalizer := usecase.NewFinalizer(orderRepo, validator, idem, producer, numbers, cfg.Shop.Currency, logging.New("finalizer"))
	limiter := ratelimit.New(cfg.RateLimit.MaxEvents, cfg.RateLimit.Window, cfg.RateLimit.BanFor)
	pipeline := usecase.NewPipeline(limiter, sessionRepo, machine, finalizer, 3*time.Second, logging.New("pipeline"))

	// init handlers + routers + middleware
	router := http.NewRouter(http.RouterDeps{
		Events:       http.NewEventHandler(pipeline),
		Catalog:      http.NewCatalogHandler(catalogRepo),
		Orders:       http.NewOrderHandler(orderRepo, statusCache),
		Tokens:       http.NewTokenHandler(cfg),
		Authz:        middleware.NewAuthz(cfg),
		WebhookToken: cfg.Webhook.Token,
		Log:          logging.New("http"),
	})

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}

	return &App{Router: router}, cleanup, nil
}

func setupQueue(cfg configs.Config, ch *amqp091.Channel) {
	gw := payment.NewStub(cfg.Payment.Approve, logging.New("payment"))
	h := queue.NewPaymentHandler(gw, logging.New("payment-worker"))

	router := queue.NewRouter(ch, queue.WithPrefetch(50))
	router.Register("order.placed.q", queue.JSONHandler[usecase.OrderPlacedMsg]{HandleFunc: h.HandlePlaced})

	if err := router.Start(); err != nil {
		panic(err)
	}
}

func setupKafkaListener(cfg configs.Config, orders *repo.MySQLOrderRepo, statusCache *cache.RedisCache) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		panic(err)
	}

	h := kafka.NewOrderStatusChangedHandler(orders, statusCache)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicStatus}, h.Handle)
	consumer.Log = logging.New("kafka-status")

	// Run in background (respect app context if you have one)
	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			panic(err)
		}
	}()
}
