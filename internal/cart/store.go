// Package cart owns a browsing session's line items: stock-checked mutations, derived
// totals, and the load-on-open / save-on-every-mutation persistence contract.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/safejson"
	"github.com/shopspring/decimal"
)

// Rejection reasons reported to Metrics.
const (
	ReasonUnavailable       = "unavailable"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidQuantity   = "invalid_quantity"
)

// ProductResolver looks up current product data. Missing products resolve to nil.
type ProductResolver interface {
	GetByID(ctx context.Context, id int64) *models.Product
	GetByIDs(ctx context.Context, ids []int64) map[int64]*models.Product
}

// Metrics is implemented by pkg/metrics.Storefront.
type Metrics interface {
	IncCartRejection(reason string)
	IncCartPersistFailure()
}

type deps struct {
	resolver  ProductResolver
	persister Persister
	locker    Locker
	sink      notifications.Sink
	logg      *logger.Logger
	metrics   Metrics
}

// Store is one session's cart. Methods are safe for concurrent use. Mutations hold the
// session lock and re-read the persisted items first, so Stores opened for the same
// session by concurrent requests do not overwrite each other's changes.
type Store struct {
	deps
	key string

	mu    sync.Mutex
	items []models.CartLineItem
}

// Load replaces the in-memory items with the persisted ones. Unreadable data is logged,
// deleted and treated as an empty cart.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, _ = s.readLocked(ctx)
}

// readLocked returns the persisted items. ok is false when the backend failed.
func (s *Store) readLocked(ctx context.Context) (items []models.CartLineItem, ok bool) {
	data, found, err := s.persister.Load(ctx, s.key)
	if err != nil {
		s.logg.Error(ctx, "load cart failed", err)
		return nil, false
	}
	if !found {
		return nil, true
	}

	items, err = safejson.Bytes[[]models.CartLineItem](data, nil)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding unreadable cart")
		if err := s.persister.Delete(ctx, s.key); err != nil {
			s.logg.Error(ctx, "delete unreadable cart failed", err)
		}
		return nil, true
	}
	return normalize(items), true
}

// beginLocked takes the session lock and refreshes the items from the persister. When
// the persister is unreachable the in-memory items are kept. A lock backend failure is
// logged and the mutation proceeds unserialized. The caller holds s.mu and must call
// the returned release.
func (s *Store) beginLocked(ctx context.Context) (release func()) {
	unlock, err := s.locker.Lock(ctx, s.key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart session lock unavailable")
		unlock = func() {}
	}
	if items, ok := s.readLocked(ctx); ok {
		s.items = items
	}
	return unlock
}

// AddItem adds quantity units of product, merging with an existing line.
func (s *Store) AddItem(ctx context.Context, product *models.Product, quantity int) error {
	if product == nil || !product.InStock {
		s.reject(ctx, ReasonUnavailable, notifications.Error(enums.NoticeProductUnavailable, notifications.MsgProductUnavailable))
		return pkgerrors.New(pkgerrors.CodeUnavailable, notifications.MsgProductUnavailable)
	}
	ctx = s.logg.WithProductID(ctx, product.ID)
	if quantity < 1 {
		s.metrics.IncCartRejection(ReasonInvalidQuantity)
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.beginLocked(ctx)()

	idx := s.indexLocked(product.ID)
	newQuantity := quantity
	if idx >= 0 {
		newQuantity += s.items[idx].Quantity
	}
	if newQuantity > product.StockCount {
		return s.insufficient(ctx, product.StockCount, newQuantity)
	}

	if idx >= 0 {
		s.items[idx].Quantity = newQuantity
	} else {
		s.items = append(s.items, models.CartLineItem{ProductID: product.ID, Quantity: quantity})
	}
	s.saveLocked(ctx)
	s.sink.Notify(ctx, notifications.Success(enums.NoticeItemAdded, addedMessage(product, quantity)))
	return nil
}

// RemoveItem drops the line for productID. Removing an absent product is not an error.
func (s *Store) RemoveItem(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.beginLocked(ctx)()
	s.removeLocked(ctx, productID)
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1 remove it.
// The stock check is skipped when the product can no longer be resolved.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		s.RemoveItem(ctx, productID)
		return nil
	}
	ctx = s.logg.WithProductID(ctx, productID)

	// resolve before locking; the resolver may go over the network
	product := s.resolver.GetByID(ctx, productID)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.beginLocked(ctx)()

	if product != nil && quantity > product.StockCount {
		return s.insufficient(ctx, product.StockCount, quantity)
	}
	idx := s.indexLocked(productID)
	if idx < 0 {
		return nil
	}
	s.items[idx].Quantity = quantity
	s.saveLocked(ctx)
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.beginLocked(ctx)()
	s.items = nil
	s.saveLocked(ctx)
	s.sink.Notify(ctx, notifications.Success(enums.NoticeCartCleared, notifications.MsgCartCleared))
}

// ClearSilently empties the cart without a notice; used after an order is placed.
func (s *Store) ClearSilently(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.beginLocked(ctx)()
	s.items = nil
	s.saveLocked(ctx)
}

func (s *Store) IsInCart(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(productID) >= 0
}

// ItemQuantity returns 0 when the product is not in the cart.
func (s *Store) ItemQuantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(productID); idx >= 0 {
		return s.items[idx].Quantity
	}
	return 0
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []models.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Lines joins the line items with current product data. Lines whose product cannot be
// resolved are left out.
func (s *Store) Lines(ctx context.Context) []models.CartLine {
	items := s.Items()
	if len(items) == 0 {
		return []models.CartLine{}
	}
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products := s.resolver.GetByIDs(ctx, ids)

	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || product == nil {
			continue
		}
		lineTotal, _ := decimal.NewFromFloat(product.Price).
			Mul(decimal.NewFromInt(int64(item.Quantity))).
			Round(2).
			Float64()
		lines = append(lines, models.CartLine{CartLineItem: item, Product: *product, LineTotal: lineTotal})
	}
	return lines
}

// Total sums price x quantity over resolvable lines, rounded to cents.
func (s *Store) Total(ctx context.Context) decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines(ctx) {
		total = total.Add(decimal.NewFromFloat(line.Product.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

func (s *Store) removeLocked(ctx context.Context, productID int64) {
	if idx := s.indexLocked(productID); idx >= 0 {
		s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	}
	s.saveLocked(ctx)
	s.sink.Notify(ctx, notifications.Success(enums.NoticeItemRemoved, notifications.MsgItemRemoved))
}

func (s *Store) insufficient(ctx context.Context, stock, requested int) error {
	msg := fmt.Sprintf("Only %d items available in stock", stock)
	s.reject(ctx, ReasonInsufficientStock, notifications.Error(enums.NoticeInsufficientStock, msg))
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).
		WithDetails(map[string]any{"available": stock, "requested": requested})
}

func (s *Store) reject(ctx context.Context, reason string, notice notifications.Notice) {
	s.metrics.IncCartRejection(reason)
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "cart mutation rejected")
	s.sink.Notify(ctx, notice)
}

// saveLocked writes the current items. Failures are logged and counted, never returned.
func (s *Store) saveLocked(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []models.CartLineItem{}
	}
	data, err := json.Marshal(items)
	if err == nil {
		err = s.persister.Save(ctx, s.key, data)
	}
	if err != nil {
		s.metrics.IncCartPersistFailure()
		s.logg.Error(ctx, "persist cart failed", err)
	}
}

func (s *Store) indexLocked(productID int64) int {
	for i, item := range s.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// normalize drops non-positive quantities and keeps the first line per product.
func normalize(items []models.CartLineItem) []models.CartLineItem {
	seen := make(map[int64]struct{}, len(items))
	out := make([]models.CartLineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity < 1 {
			continue
		}
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func addedMessage(product *models.Product, quantity int) string {
	plural := ""
	if quantity > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Added %d %s%s to cart!", quantity, product.Title, plural)
}
