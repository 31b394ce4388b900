// Command seed-db loads products, customers, prices and an operator API key
// into the lunch database.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/lunch-orders/internal/domain/auth"
	"github.com/xenking/lunch-orders/internal/handler"
	"github.com/xenking/lunch-orders/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	apiKey       string
	apiKeyPepper string
	files        []string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.apiKey, "api-key", "", "operator API key to seed (or LUNCH_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LUNCH_API_KEY_PEPPER env)")
	flag.Parse()

	opts.files = flag.Args()
	if len(opts.files) == 0 {
		opts.files = []string{"db/seed/catalog.json"}
	}
	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("LUNCH_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("LUNCH_API_KEY_PEPPER")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if opts.databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		if err := run(ctx, lg, opts); err != nil {
			return errors.Wrap(err, "seed")
		}
		lg.Info("Seed completed")
		return nil
	})
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	c, err := loadCatalogs(ctx, opts.files)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded",
		zap.Strings("files", opts.files),
		zap.Int("products", len(c.products)),
		zap.Int("customers", len(c.customers)),
		zap.Int("prices", c.prices.Len()),
	)

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for _, p := range c.products {
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	customers := postgres.NewCustomerRepository(pool)
	for _, cu := range c.customers {
		if err := customers.Upsert(ctx, cu); err != nil {
			return errors.Wrapf(err, "upsert customer %s", cu.Username)
		}
	}

	if err := postgres.NewPriceRepository(pool).UpsertAll(ctx, c.prices); err != nil {
		return errors.Wrap(err, "upsert prices")
	}
	if all := c.prices.Prices(); len(all) > 0 {
		lg.Info("Prices upserted",
			zap.String("from", dayOf(all[0].Date)),
			zap.String("to", dayOf(all[len(all)-1].Date)),
		)
	}

	if opts.apiKey == "" {
		lg.Warn("No operator API key given, skipping")
		return nil
	}
	if opts.apiKeyPepper == "" {
		return errors.New("API key pepper is required with --api-key")
	}
	key := auth.APIKeyInfo{
		ID:      "operator",
		KeyHash: handler.HashKey([]byte(opts.apiKeyPepper), opts.apiKey),
		Name:    "Operator key",
		Scopes:  []string{auth.ScopeRejectOrder},
	}
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, key); err != nil {
		return errors.Wrap(err, "upsert operator API key")
	}
	lg.Info("Operator API key upserted", zap.String("id", key.ID))
	return nil
}
