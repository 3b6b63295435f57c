// Package catalog reads products from the record store. Lookups never fail the caller:
// a store error is logged and surfaces as an empty result.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/internal/filter"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/recordstore"
)

// DefaultFeaturedLimit is the size of the featured shelf.
const DefaultFeaturedLimit = 8

// Service exposes read-only catalog queries.
type Service interface {
	GetAll(ctx context.Context) []models.Product
	GetPage(ctx context.Context, params pagination.Params) ([]models.Product, pagination.Page)
	GetByID(ctx context.Context, id int64) *models.Product
	GetByIDs(ctx context.Context, ids []int64) map[int64]*models.Product
	GetByCategory(ctx context.Context, category string) []models.Product
	Search(ctx context.Context, query string) []models.Product
	Featured(ctx context.Context, limit int) []models.Product
	Categories(ctx context.Context) []string
}

type service struct {
	store         recordstore.Store
	logg          *logger.Logger
	featuredLimit int
}

// NewService builds a catalog backed by store.
func NewService(store recordstore.Store, logg *logger.Logger, featuredLimit int) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("record store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if featuredLimit <= 0 {
		featuredLimit = DefaultFeaturedLimit
	}
	return &service{store: store, logg: logg, featuredLimit: featuredLimit}, nil
}

func (s *service) GetAll(ctx context.Context) []models.Product {
	products, _ := s.fetch(ctx, "get all products", recordstore.FetchParams{
		Fields:  ProductFields,
		OrderBy: []recordstore.OrderBy{recordstore.Ascending(recordstore.FieldID)},
	})
	return products
}

func (s *service) GetPage(ctx context.Context, params pagination.Params) ([]models.Product, pagination.Page) {
	params = params.Normalize()
	products, total := s.fetch(ctx, "get product page", recordstore.FetchParams{
		Fields:  ProductFields,
		OrderBy: []recordstore.OrderBy{recordstore.Ascending(recordstore.FieldID)},
		Paging:  recordstore.Paging{Limit: params.Limit, Offset: params.Offset},
	})
	return products, params.PageFor(len(products), total)
}

func (s *service) GetByID(ctx context.Context, id int64) *models.Product {
	if id <= 0 {
		return nil
	}
	ctx = s.logg.WithProductID(ctx, id)

	env, err := s.store.Get(ctx, recordstore.TableProducts, id, ProductFields)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "get product failed")
		return nil
	}
	rows, err := env.Rows()
	if err != nil || len(rows) == 0 {
		// a missing product is reported as success:false
		s.logg.Debug(ctx, "product not found")
		return nil
	}
	product, ok := s.decode(ctx, rows[0])
	if !ok {
		return nil
	}
	return &product
}

func (s *service) GetByIDs(ctx context.Context, ids []int64) map[int64]*models.Product {
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	products, _ := s.fetch(ctx, "get products by id", recordstore.FetchParams{
		Fields: ProductFields,
		Where:  []recordstore.Condition{recordstore.Equal(recordstore.FieldID, values...)},
	})
	for i := range products {
		p := products[i]
		out[p.ID] = &p
	}
	return out
}

func (s *service) GetByCategory(ctx context.Context, category string) []models.Product {
	products, _ := s.fetch(ctx, "get products by category", recordstore.FetchParams{
		Fields:  ProductFields,
		Where:   []recordstore.Condition{recordstore.Equal(FieldCategory, category)},
		OrderBy: []recordstore.OrderBy{recordstore.Ascending(recordstore.FieldID)},
	})
	return products
}

// Search matches title, description or category. The store only ANDs conditions, so the
// OR across fields is evaluated here.
func (s *service) Search(ctx context.Context, query string) []models.Product {
	all := s.GetAll(ctx)
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if filter.MatchesQuery(p, query) {
			out = append(out, p)
		}
	}
	return out
}

func (s *service) Featured(ctx context.Context, limit int) []models.Product {
	if limit <= 0 {
		limit = s.featuredLimit
	}
	products, _ := s.fetch(ctx, "get featured products", recordstore.FetchParams{
		Fields:  ProductFields,
		OrderBy: []recordstore.OrderBy{recordstore.Descending(FieldRating)},
		Paging:  recordstore.Paging{Limit: limit},
	})
	return products
}

func (s *service) Categories(ctx context.Context) []string {
	env, err := s.store.Fetch(ctx, recordstore.TableProducts, recordstore.FetchParams{
		Fields:  []string{FieldCategory},
		GroupBy: []string{FieldCategory},
		OrderBy: []recordstore.OrderBy{recordstore.Ascending(recordstore.FieldID)},
	})
	rows, err := rowsOrError(env, err)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "get categories failed")
		return []string{}
	}
	out := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		category := row.String(FieldCategory)
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	return out
}

func (s *service) fetch(ctx context.Context, op string, params recordstore.FetchParams) ([]models.Product, int) {
	env, err := s.store.Fetch(ctx, recordstore.TableProducts, params)
	rows, err := rowsOrError(env, err)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"op": op, "error": err.Error()}), "catalog fetch failed")
		return []models.Product{}, 0
	}

	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		if p, ok := s.decode(ctx, row); ok {
			products = append(products, p)
		}
	}
	total := env.Total
	if total < len(products) {
		total = len(products)
	}
	return products, total
}

func (s *service) decode(ctx context.Context, row recordstore.Record) (models.Product, bool) {
	product, err := DecodeProduct(row)
	if errors.Is(err, errMissingID) {
		s.logg.Warn(ctx, "skipping product record without id")
		return product, false
	}
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"product_id": product.ID, "error": err.Error()}), "malformed product fields")
	}
	return product, true
}

func rowsOrError(env *recordstore.Envelope, err error) ([]recordstore.Record, error) {
	if err != nil {
		return nil, err
	}
	return env.Rows()
}
