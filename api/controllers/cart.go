package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	cartsvc "github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/models"
)

// CartOpener is implemented by *cart.Sessions.
type CartOpener interface {
	Open(ctx context.Context, sessionID string) (*cartsvc.Store, error)
}

// ProductLookup resolves the product being added to a cart.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) *models.Product
}

type cartResponse struct {
	SessionID  string            `json:"sessionId"`
	Items      []models.CartLine `json:"items"`
	TotalItems int               `json:"totalItems"`
	Total      float64           `json:"total"`
}

func newCartResponse(ctx context.Context, store *cartsvc.Store) cartResponse {
	return cartResponse{
		SessionID:  middleware.SessionIDFromContext(ctx),
		Items:      store.Lines(ctx),
		TotalItems: store.TotalItems(),
		Total:      store.Total(ctx).InexactFloat64(),
	}
}

type addCartItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func openCart(w http.ResponseWriter, r *http.Request, carts CartOpener, logg *logger.Logger) (*cartsvc.Store, bool) {
	if carts == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return nil, false
	}
	store, err := carts.Open(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return store, true
}

func CartGet(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}
		responses.WriteResult(r.Context(), w, http.StatusOK, newCartResponse(r.Context(), store))
	}
}

// CartAddItem adds a product to the session cart. A missing quantity means one unit.
// Rejections answer 409 with the unchanged cart.
func CartAddItem(carts CartOpener, products ProductLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}

		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}

		ctx := r.Context()
		product := products.GetByID(ctx, payload.ProductID)
		if err := store.AddItem(ctx, product, payload.Quantity); err != nil {
			responses.WriteErrorWithData(ctx, logg, w, err, newCartResponse(ctx, store))
			return
		}
		responses.WriteResult(ctx, w, http.StatusOK, newCartResponse(ctx, store))
	}
}

// CartUpdateItem sets a line's quantity; zero or less removes the line.
func CartUpdateItem(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}

		ctx := r.Context()
		if err := store.UpdateQuantity(ctx, productID, *payload.Quantity); err != nil {
			responses.WriteErrorWithData(ctx, logg, w, err, newCartResponse(ctx, store))
			return
		}
		responses.WriteResult(ctx, w, http.StatusOK, newCartResponse(ctx, store))
	}
}

func CartRemoveItem(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}
		store.RemoveItem(r.Context(), productID)
		responses.WriteResult(r.Context(), w, http.StatusOK, newCartResponse(r.Context(), store))
	}
}

func CartClear(carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}
		store.Clear(r.Context())
		responses.WriteResult(r.Context(), w, http.StatusOK, newCartResponse(r.Context(), store))
	}
}
