package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/cache"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/session"
)

// app holds the backends chosen by the configuration.
type app struct {
	cfg *config.Config
	log *logrus.Logger

	db    *gorm.DB
	redis *redis.Client

	auth     client.AuthClient
	storage  client.ObjectStorage
	catalog  cache.CatalogCache
	products repository.ProductRepository
	cats     repository.CategoryRepository
	orders   repository.OrderRepository
	profiles repository.ProfileRepository
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log), nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	a.auth = client.NewAuthClient(&cfg.Supabase, httpClient)

	if cfg.SQL() {
		a.db, err = client.InitDB(cfg.Store.Driver, cfg.Store.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		a.products = repository.NewProductRepository(a.db)
		a.cats = repository.NewCategoryRepository(a.db)
		a.orders = repository.NewOrderRepository(a.db)
		a.profiles = repository.NewProfileRepository(a.db)
		a.storage = client.NewLocalStorage(cfg.Storage.LocalDir, strings.TrimRight(cfg.BaseURL, "/")+"/uploads")
	} else {
		rest := client.NewSupabaseClient(&cfg.Supabase, httpClient)
		a.products = repository.NewProductRestRepository(rest)
		a.cats = repository.NewCategoryRestRepository(rest)
		a.orders = repository.NewOrderRestRepository(rest)
		a.profiles = repository.NewProfileRestRepository(rest)
		a.storage = client.NewStorageClient(&cfg.Supabase, cfg.Storage.Bucket, httpClient)
	}

	a.catalog = cache.NewNoopCatalogCache()
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, catalog reads go straight to the store")
		}
		a.catalog = cache.NewRedisCatalogCache(a.redis, cfg.Redis.TTL)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Store.Driver,
		"cache":  cfg.Redis.Addr != "",
	}).Info("backends ready")
	return a, nil
}

type services struct {
	products   service.ProductService
	categories service.CategoryService
	orders     service.OrderService
	media      service.MediaService
	accounts   service.AccountService
}

func (a *app) services() services {
	products := service.NewProductService(a.products, a.catalog, a.log)
	return services{
		products:   products,
		categories: service.NewCategoryService(a.cats, a.catalog, a.log),
		orders:     service.NewOrderService(a.orders, validator.New(), a.log),
		media:      service.NewMediaService(a.storage, products, a.log),
		accounts:   service.NewAccountService(a.auth, a.cfg.BaseURL, a.log),
	}
}

// sessions builds the registry of per-browser auth stores.
func (a *app) sessions() (*session.Manager, error) {
	opts := session.Options{Window: a.cfg.Auth.DebounceWindow}
	return session.NewManager(a.cfg.Auth.MaxSessions, func(seed *model.Session) *session.Store {
		return session.NewStore(session.NewGoTrueProvider(a.auth, seed), a.profiles, a.log, opts)
	})
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("close redis")
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.log.WithError(err).Warn("close database")
			}
		}
	}
}
