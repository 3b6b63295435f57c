// Package checkout validates the checkout form, prices the cart and submits orders to
// the record store.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/recordstore"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/shopspring/decimal"
)

const guardNamespace = "checkout-submitting"

// Cart is the part of a session cart that checkout reads and clears.
type Cart interface {
	Items() []models.CartLineItem
	Total(ctx context.Context) decimal.Decimal
	ClearSilently(ctx context.Context)
}

// Metrics is implemented by pkg/metrics.Storefront.
type Metrics interface {
	IncOrderSubmission(result string)
}

// Service prices carts and manages orders.
type Service interface {
	Quote(ctx context.Context, c Cart) Quote
	Submit(ctx context.Context, sessionID string, c Cart, sub Submission) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, params pagination.Params) ([]models.Order, pagination.Page, error)
	UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) (*models.Order, error)
}

type service struct {
	store   recordstore.Store
	pricing Pricing
	guard   Guard
	sink    notifications.Sink
	logg    *logger.Logger
	metrics Metrics
	now     func() time.Time
}

type nopMetrics struct{}

func (nopMetrics) IncOrderSubmission(string) {}

// NewService builds the checkout service. guard, sink and metrics are optional.
func NewService(store recordstore.Store, pricing Pricing, guard Guard, sink notifications.Sink, logg *logger.Logger, m Metrics) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("record store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if guard == nil {
		guard = NewMemoryGuard(DefaultGuardTTL)
	}
	if sink == nil {
		sink = notifications.Discard{}
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &service{
		store:   store,
		pricing: pricing,
		guard:   guard,
		sink:    sink,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

func (s *service) Quote(ctx context.Context, c Cart) Quote {
	if c == nil {
		return s.pricing.Quote(decimal.Zero)
	}
	return s.pricing.Quote(c.Total(ctx))
}

// Submit places an order for the cart. On success the cart is emptied; on failure it is
// left as it was so the shopper can retry.
func (s *service) Submit(ctx context.Context, sessionID string, c Cart, sub Submission) (*models.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	var items []models.CartLineItem
	if c != nil {
		items = c.Items()
	}
	if len(items) == 0 {
		s.metrics.IncOrderSubmission(metrics.ResultInvalid)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	sub, err := sub.Validate()
	if err != nil {
		s.metrics.IncOrderSubmission(metrics.ResultInvalid)
		return nil, err
	}

	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	quote := s.pricing.Quote(c.Total(ctx))
	order := models.Order{
		Items:           items,
		Subtotal:        quote.Subtotal,
		Shipping:        quote.Shipping,
		Tax:             quote.Tax,
		Total:           quote.Total,
		ShippingAddress: sub.Shipping,
		PaymentMethod:   sub.Payment.Summary(),
		Notes:           sub.Notes,
		OrderDate:       s.now().UTC().Truncate(time.Second),
		TrackingNumber:  NewTrackingNumber(),
		Status:          enums.OrderStatusPending,
	}

	created, err := s.create(ctx, order)
	if err != nil {
		s.metrics.IncOrderSubmission(metrics.ResultFailure)
		s.logg.Error(ctx, "order submission failed", err)
		s.sink.Notify(ctx, notifications.Error(enums.NoticeOrderFailed, notifications.MsgOrderFailed))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, notifications.MsgOrderFailed)
	}
	order.ID = created.ID()
	if tracking := created.String(FieldTrackingNumber); tracking != "" {
		order.TrackingNumber = tracking
	}

	c.ClearSilently(ctx)
	s.metrics.IncOrderSubmission(metrics.ResultSuccess)
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID), map[string]any{
		"tracking_number": order.TrackingNumber,
		"total":           order.Total,
		"items":           len(order.Items),
	}), "order placed")
	s.sink.Notify(ctx, notifications.Success(enums.NoticeOrderPlaced, notifications.MsgOrderPlaced))
	return &order, nil
}

// acquire takes the per-session submission guard. A guard backend failure is logged and
// the submission proceeds unguarded.
func (s *service) acquire(ctx context.Context, sessionID string) (func(), error) {
	key := redis.Key(guardNamespace, sessionID)
	ok, err := s.guard.Acquire(ctx, key)
	if err != nil {
		s.logg.Error(ctx, "acquire submission guard failed", err)
		return func() {}, nil
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	return func() {
		// the request context may already be cancelled
		if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logg.Error(ctx, "release submission guard failed", err)
		}
	}, nil
}

func (s *service) create(ctx context.Context, order models.Order) (recordstore.Record, error) {
	env, err := s.store.Create(ctx, recordstore.TableOrders, []recordstore.Record{EncodeOrder(order)})
	if err != nil {
		return nil, err
	}
	created, err := recordstore.Results(env)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("%w: no order returned", recordstore.ErrUnsuccessful)
	}
	return created[0], nil
}

func (s *service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}
	ctx = s.logg.WithOrderID(ctx, id)
	env, err := s.store.Get(ctx, recordstore.TableOrders, id, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch order failed")
	}
	rows, err := env.Rows()
	if err != nil || len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order := s.decode(ctx, rows[0])
	return &order, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params) ([]models.Order, pagination.Page, error) {
	params = params.Normalize()
	env, err := s.store.Fetch(ctx, recordstore.TableOrders, recordstore.FetchParams{
		OrderBy: []recordstore.OrderBy{recordstore.Descending(recordstore.FieldID)},
		Paging:  recordstore.Paging{Limit: params.Limit, Offset: params.Offset},
	})
	if err != nil {
		return nil, pagination.Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders failed")
	}
	rows, err := env.Rows()
	if err != nil {
		return nil, pagination.Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders failed")
	}

	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, s.decode(ctx, row))
	}
	total := env.Total
	if total < params.Offset+len(orders) {
		total = params.Offset + len(orders)
	}
	return orders, params.PageFor(len(orders), total), nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}
	if _, err := s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, id)

	env, err := s.store.Update(ctx, recordstore.TableOrders, []recordstore.Record{{
		recordstore.FieldID: id,
		FieldStatus:         string(status),
	}})
	var updated []recordstore.Record
	if err == nil {
		updated, err = recordstore.Results(env)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status failed")
	}
	s.logg.Info(s.logg.WithField(ctx, "status", string(status)), "order status updated")

	// some backends accept the update without echoing the row
	if len(updated) == 0 || updated[0].ID() != id {
		return s.GetOrder(ctx, id)
	}
	order := s.decode(ctx, updated[0])
	return &order, nil
}

// DeleteOrder removes an order and returns it as it was before deletion.
func (s *service) DeleteOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, id)

	env, err := s.store.Delete(ctx, recordstore.TableOrders, []int64{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order failed")
	}
	if _, err := recordstore.Results(env); err != nil {
		// removed concurrently between the read and the delete
		if _, getErr := s.GetOrder(ctx, id); pkgerrors.HasCode(getErr, pkgerrors.CodeNotFound) {
			return nil, getErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order failed")
	}
	s.logg.Info(ctx, "order deleted")
	return order, nil
}

func (s *service) decode(ctx context.Context, row recordstore.Record) models.Order {
	order, err := DecodeOrder(row)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_id": order.ID, "error": err.Error()}), "malformed order fields")
	}
	return order
}
