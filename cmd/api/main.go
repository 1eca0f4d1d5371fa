package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shopapi/internal/auth"
	"shopapi/internal/config"
	"shopapi/internal/handler"
	"shopapi/internal/infra/cache"
	"shopapi/internal/infra/db"
	"shopapi/internal/infra/events"
	infraRepo "shopapi/internal/infra/repository"
	"shopapi/internal/logger"
	"shopapi/internal/server"
	"shopapi/internal/usecase"
	"shopapi/internal/validator"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	zl, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続 + マイグレーション
	gormDB, err := db.Connect(cfg)
	if err != nil {
		zl.Fatal("failed to connect database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		zl.Fatal("failed to migrate", zap.Error(err))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	val := validator.New()

	//管理者アカウント（設定があるときだけ）
	if cfg.AdminEmail != "" {
		created, err := db.SeedAdmin(ctx, userRepo, hasher, db.AdminSeed{
			Name:          cfg.AdminName,
			Email:         cfg.AdminEmail,
			Password:      cfg.AdminPassword,
			ContactNumber: cfg.AdminContactNumber,
		})
		if err != nil {
			zl.Fatal("failed to seed admin", zap.Error(err))
		}
		zl.Info("admin seed", zap.String("email", cfg.AdminEmail), zap.Bool("created", created))
	}

	//カテゴリキャッシュ（REDIS_ADDRが無ければ素通し）
	var categoryCache usecase.CategoryCache = cache.NopCategoryCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		categoryCache = cache.NewRedisCategoryCache(rdb, cfg.CategoriesTTL, zl)
	}

	//注文イベント（KAFKA_BROKERSが無ければ捨てる）
	var publisher interface {
		usecase.OrderEventPublisher
		Close() error
	} = events.NopOrderPublisher{}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		publisher = events.NewKafkaOrderPublisher(brokers, cfg.KafkaOrderTopic, zl)
	}
	defer func() { _ = publisher.Close() }()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, hasher, tokens, val, zl)
	productUC := usecase.NewProductUsecase(productRepo, txm, categoryCache, val, zl)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, val, zl)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, val, publisher, zl)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, publisher, zl)
	auditUC := usecase.NewAuditLogUsecase(auditRepo, zl)

	//Handler生成
	guards := handler.NewGuards(tokens, userRepo)
	e := server.New(cfg, zl, guards, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC, auditUC),
	}, func(ctx context.Context) error {
		return db.Ping(ctx, gormDB)
	})

	//Server起動
	if err := server.Run(ctx, e, ":"+cfg.Port, zl); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
	}
	zl.Info("server stopped")
}
