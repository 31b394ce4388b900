package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/lunch-orders/internal/domain/customer"
	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/price"
	"github.com/xenking/lunch-orders/internal/domain/product"
)

// catalogFile is the on-disk seed format. Files ending in .gz are gzipped.
type catalogFile struct {
	Products []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"products"`
	Customers []struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
		ClientID int    `json:"clientId"`
	} `json:"customers"`
	Prices []struct {
		ProductID string          `json:"productId"`
		Date      string          `json:"date"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"prices"`
}

// catalog is the merged, validated content of every seed file.
type catalog struct {
	products  []product.Product
	customers []customer.Customer
	prices    *price.Set
}

// loadCatalogs reads files concurrently and merges them. Prices are checked
// as one set, so a (product, date) pair repeated in any two files fails.
func loadCatalogs(ctx context.Context, files []string) (*catalog, error) {
	parsed := make([]*catalogFile, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := readCatalogFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			parsed[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		out    catalog
		prices []price.Price
	)
	for i, c := range parsed {
		for _, p := range c.Products {
			if p.ID == "" {
				return nil, errors.Errorf("%s: product without id", files[i])
			}
			out.products = append(out.products, product.Product{ID: p.ID, Name: p.Name, Category: p.Category})
		}
		for _, cu := range c.Customers {
			if cu.Username == "" {
				return nil, errors.Errorf("%s: customer without username", files[i])
			}
			out.customers = append(out.customers, customer.Customer{
				Username: cu.Username,
				FullName: cu.FullName,
				ClientID: cu.ClientID,
			})
		}
		for _, p := range c.Prices {
			d, err := daterange.ParseDate(p.Date)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: price of %s", files[i], p.ProductID)
			}
			prices = append(prices, price.Price{ProductID: p.ProductID, Date: d, Amount: p.Amount})
		}
	}

	set, err := price.NewSet(prices)
	if err != nil {
		return nil, errors.Wrap(err, "validate prices")
	}
	out.prices = set
	return &out, nil
}

func readCatalogFile(path string) (*catalogFile, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var c catalogFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &c, nil
}

// dayOf formats a price date for logs.
func dayOf(t time.Time) string {
	return t.Format(daterange.Layout)
}
