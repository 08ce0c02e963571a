package app

import (
	"context"
	"fmt"

	"fsanano/shopcart/internal/cart"
	"fsanano/shopcart/internal/catalog"
	"fsanano/shopcart/internal/config"
	"fsanano/shopcart/internal/repository"
	"fsanano/shopcart/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the state shared by every front end: the user list, the catalog
// and the open sessions.
type App struct {
	Users *service.UserService
	Shop  *service.ShopService

	pool *pgxpool.Pool
}

// New loads users and the catalog according to cfg. Users come from Postgres
// when DatabaseURL is set and from the flat file otherwise.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	var repo service.UserRepository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		pgRepo := repository.NewUserPgRepository(pool)
		if err := pgRepo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		a.pool = pool
		repo = pgRepo
		logger.Info("using postgres user store")
	} else {
		repo = repository.NewUserFileRepository(cfg.UsersFile, logger)
		logger.Info("using file user store", zap.String("path", cfg.UsersFile))
	}

	a.Users = service.NewUserService(repo, cfg.PasswordHashing, logger)
	if _, err := a.Users.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	var (
		c   *catalog.Catalog
		err error
	)
	if cfg.CatalogFile != "" {
		c, err = catalog.LoadFile(cfg.CatalogFile)
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Shop = service.NewShopService(c, a.Users, logger,
		cart.WithTTL(cfg.CartTTL),
		cart.WithTaxRate(cfg.SalesTaxRate),
	)
	return a, nil
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
