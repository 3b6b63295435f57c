package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/types"
)

type quoteResponse struct {
	checkout.Quote
	TotalItems int               `json:"totalItems"`
	Items      []models.CartLine `json:"items"`
}

// CheckoutShipping validates the shipping step and echoes the normalized address.
func CheckoutShipping(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.ShippingAddress
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addr, err := checkout.ValidateShipping(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addr)
	}
}

// CheckoutPayment validates the payment step. Only the redacted summary is returned.
func CheckoutPayment(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkout.PaymentDetails
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details, err := checkout.ValidatePayment(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details.Summary())
	}
}

func CheckoutQuote(svc checkout.Service, carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}
		ctx := r.Context()
		responses.WriteSuccess(w, quoteResponse{
			Quote:      svc.Quote(ctx, store),
			TotalItems: store.TotalItems(),
			Items:      store.Lines(ctx),
		})
	}
}

// CheckoutSubmit places the order for the session cart. A failed submission answers with
// the cart still intact so the client can retry.
func CheckoutSubmit(svc checkout.Service, carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkout.Submission
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, ok := openCart(w, r, carts, logg)
		if !ok {
			return
		}

		ctx := r.Context()
		order, err := svc.Submit(ctx, middleware.SessionIDFromContext(ctx), store, payload)
		if err != nil {
			responses.WriteErrorWithData(ctx, logg, w, err, newCartResponse(ctx, store))
			return
		}
		responses.WriteResult(ctx, w, http.StatusCreated, order)
	}
}

func OrderGet(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderList(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pagination.FromQuery(r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}
		orders, page, err := svc.ListOrders(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": orders, "page": page})
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func OrderUpdateStatus(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), id, enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderDelete(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.DeleteOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
