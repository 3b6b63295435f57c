package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/filter"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

const maxSearchLen = 200

type productResponse struct {
	models.Product
	DiscountPercent int    `json:"discountPercent"`
	PrimaryImage    string `json:"primaryImage"`
}

func newProductResponse(p models.Product) productResponse {
	return productResponse{Product: p, DiscountPercent: p.DiscountPercent(), PrimaryImage: p.PrimaryImage()}
}

func newProductResponses(products []models.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = newProductResponse(p)
	}
	return out
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Page     pagination.Page   `json:"page"`
	Sort     enums.SortKey     `json:"sort"`
	Filters  []filter.Chip     `json:"filters"`
}

// ProductList serves the catalog grid. Unfiltered listings in featured order are paged
// by the record store; anything else is filtered and sorted over the full catalog.
func ProductList(svc catalog.Service, sorter *filter.Sorter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || sorter == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		query := r.URL.Query()
		criteria, err := filter.FromQuery(query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}
		criteria.Query = validators.SanitizeString(criteria.Query, maxSearchLen)

		sortKey, err := enums.ParseSortKey(query.Get("sort"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}

		params, err := pagination.FromQuery(query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}

		filters := criteria.Active()
		if filters == nil {
			filters = []filter.Chip{}
		}

		if !criteria.HasActive() && sortKey == enums.SortFeatured {
			products, page := svc.GetPage(r.Context(), params)
			responses.WriteSuccess(w, productListResponse{
				Products: newProductResponses(products),
				Page:     page,
				Sort:     sortKey,
				Filters:  filters,
			})
			return
		}

		view := sorter.Sort(filter.Apply(svc.GetAll(r.Context()), criteria), sortKey)
		total := len(view)
		start := min(params.Offset, total)
		end := min(start+params.Limit, total)
		page := view[start:end]

		responses.WriteSuccess(w, productListResponse{
			Products: newProductResponses(page),
			Page:     params.PageFor(len(page), total),
			Sort:     sortKey,
			Filters:  filters,
		})
	}
}

func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product := svc.GetByID(r.Context(), id)
		if product == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, newProductResponse(*product))
	}
}

// ProductsFeatured returns the top rated products; limit=0 uses the configured shelf size.
func ProductsFeatured(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": newProductResponses(svc.Featured(r.Context(), limit))})
	}
}

func ProductSearch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLen)
		if q == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "q is required").
				WithDetails(map[string]string{"q": "is required"}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"query": q, "products": newProductResponses(svc.Search(r.Context(), q))})
	}
}

func ProductCategories(svc catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"categories": svc.Categories(r.Context())})
	}
}

func ProductsByCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := strings.TrimSpace(chi.URLParam(r, "category"))
		if category == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category is required"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"category": category, "products": newProductResponses(svc.GetByCategory(r.Context(), category))})
	}
}
