package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	mu       sync.Mutex
	products map[int64]*models.Product
}

func newStubResolver(products ...models.Product) *stubResolver {
	r := &stubResolver{products: map[int64]*models.Product{}}
	for i := range products {
		p := products[i]
		r.products[p.ID] = &p
	}
	return r
}

func (r *stubResolver) GetByID(_ context.Context, id int64) *models.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (r *stubResolver) GetByIDs(ctx context.Context, ids []int64) map[int64]*models.Product {
	out := map[int64]*models.Product{}
	for _, id := range ids {
		if p := r.GetByID(ctx, id); p != nil {
			out[id] = p
		}
	}
	return out
}

func (r *stubResolver) delete(id int64) {
	r.mu.Lock()
	delete(r.products, id)
	r.mu.Unlock()
}

type stubMetrics struct {
	mu              sync.Mutex
	rejections      map[string]int
	persistFailures int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{rejections: map[string]int{}}
}

func (m *stubMetrics) IncCartRejection(reason string) {
	m.mu.Lock()
	m.rejections[reason]++
	m.mu.Unlock()
}

func (m *stubMetrics) IncCartPersistFailure() {
	m.mu.Lock()
	m.persistFailures++
	m.mu.Unlock()
}

type failingPersister struct{}

func (failingPersister) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}
func (failingPersister) Save(context.Context, string, []byte) error { return errors.New("redis down") }
func (failingPersister) Delete(context.Context, string) error       { return errors.New("redis down") }

type harness struct {
	sessions  *Sessions
	resolver  *stubResolver
	persister *MemoryPersister
	metrics   *stubMetrics
}

func newHarness(t *testing.T, products ...models.Product) *harness {
	t.Helper()
	h := &harness{
		resolver:  newStubResolver(products...),
		persister: NewMemoryPersister(),
		metrics:   newStubMetrics(),
	}
	sessions, err := NewSessions(h.resolver, h.persister, nil, notifications.ContextSink{}, logger.Nop(), h.metrics, "")
	require.NoError(t, err)
	h.sessions = sessions
	return h
}

func (h *harness) open(t *testing.T, session string) *Store {
	t.Helper()
	store, err := h.sessions.Open(context.Background(), session)
	require.NoError(t, err)
	return store
}

func requestCtx() (context.Context, *notifications.Collector) {
	c := notifications.NewCollector()
	return notifications.WithCollector(context.Background(), c), c
}

var (
	book  = models.Product{ID: 1, Title: "Book", Price: 10, InStock: true, StockCount: 5}
	toy   = models.Product{ID: 2, Title: "Toy", Price: 4.35, InStock: true, StockCount: 3}
	ghost = models.Product{ID: 3, Title: "Ghost", Price: 99, InStock: false, StockCount: 10}
)

func TestAddItemScenario(t *testing.T) {
	h := newHarness(t, book)
	store := h.open(t, "s1")
	ctx, notices := requestCtx()

	require.NoError(t, store.AddItem(ctx, &book, 2))
	assert.Equal(t, 2, store.TotalItems())
	assert.Equal(t, "20", store.Total(ctx).String())

	err := store.AddItem(ctx, &book, 4)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, []models.CartLineItem{{ProductID: 1, Quantity: 2}}, store.Items())

	got := notices.Notices()
	require.Len(t, got, 2)
	assert.Equal(t, "Added 2 Books to cart!", got[0].Message)
	assert.Equal(t, enums.NoticeInsufficientStock, got[1].Kind)
	assert.Equal(t, "Only 5 items available in stock", got[1].Message)
	assert.Equal(t, 1, h.metrics.rejections[ReasonInsufficientStock])
}

func TestAddItemUnavailable(t *testing.T) {
	h := newHarness(t, ghost)
	store := h.open(t, "s1")

	for _, qty := range []int{1, 5, 0, -2} {
		ctx, notices := requestCtx()
		err := store.AddItem(ctx, &ghost, qty)
		require.Error(t, err)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnavailable))
		assert.Empty(t, store.Items())
		require.Len(t, notices.Notices(), 1)
		assert.Equal(t, notifications.MsgProductUnavailable, notices.Notices()[0].Message)
	}

	err := store.AddItem(context.Background(), nil, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnavailable))
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	h := newHarness(t, book)
	store := h.open(t, "s1")
	err := store.AddItem(context.Background(), &book, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, store.Items())
}

func TestAddItemNewLineOverStock(t *testing.T) {
	h := newHarness(t, toy)
	store := h.open(t, "s1")
	err := store.AddItem(context.Background(), &toy, 4)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.False(t, store.IsInCart(toy.ID))
}

func TestUpdateQuantity(t *testing.T) {
	h := newHarness(t, book, toy)
	store := h.open(t, "s1")
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, &book, 1))
	require.NoError(t, store.AddItem(ctx, &toy, 1))

	require.NoError(t, store.UpdateQuantity(ctx, book.ID, 5))
	assert.Equal(t, 5, store.ItemQuantity(book.ID))

	err := store.UpdateQuantity(ctx, book.ID, 6)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 5, store.ItemQuantity(book.ID))

	// absent line: no-op
	require.NoError(t, store.UpdateQuantity(ctx, 77, 1))
	assert.False(t, store.IsInCart(77))

	// unresolvable product skips the stock check
	h.resolver.delete(toy.ID)
	require.NoError(t, store.UpdateQuantity(ctx, toy.ID, 50))
	assert.Equal(t, 50, store.ItemQuantity(toy.ID))
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		h := newHarness(t, book)
		store := h.open(t, "s1")
		ctx, notices := requestCtx()
		require.NoError(t, store.AddItem(ctx, &book, 2))

		require.NoError(t, store.UpdateQuantity(ctx, book.ID, qty))
		assert.False(t, store.IsInCart(book.ID))
		assert.Equal(t, 0, store.ItemQuantity(book.ID))
		last := notices.Notices()[len(notices.Notices())-1]
		assert.Equal(t, notifications.MsgItemRemoved, last.Message)
	}
}

func TestRemoveAndClear(t *testing.T) {
	h := newHarness(t, book, toy)
	store := h.open(t, "s1")
	ctx, notices := requestCtx()
	require.NoError(t, store.AddItem(ctx, &book, 1))
	require.NoError(t, store.AddItem(ctx, &toy, 2))

	store.RemoveItem(ctx, 999)
	assert.Equal(t, 3, store.TotalItems())

	store.RemoveItem(ctx, book.ID)
	assert.Equal(t, []models.CartLineItem{{ProductID: 2, Quantity: 2}}, store.Items())

	store.Clear(ctx)
	assert.Empty(t, store.Items())
	assert.Equal(t, 0, store.TotalItems())
	got := notices.Notices()
	assert.Equal(t, notifications.MsgCartCleared, got[len(got)-1].Message)
}

func TestTotalSkipsUnresolvableProducts(t *testing.T) {
	h := newHarness(t, book, toy)
	store := h.open(t, "s1")
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, &book, 1))
	require.NoError(t, store.AddItem(ctx, &toy, 3))
	assert.Equal(t, "23.05", store.Total(ctx).StringFixed(2))

	h.resolver.delete(book.ID)
	assert.Equal(t, "13.05", store.Total(ctx).StringFixed(2))
	lines := store.Lines(ctx)
	require.Len(t, lines, 1)
	assert.Equal(t, toy.ID, lines[0].ProductID)
	assert.InDelta(t, 13.05, lines[0].LineTotal, 0.0001)
	assert.Equal(t, 4, store.TotalItems())
}

func TestPersistenceAcrossSessions(t *testing.T) {
	h := newHarness(t, book, toy)
	ctx := context.Background()

	first := h.open(t, "abc")
	require.NoError(t, first.AddItem(ctx, &toy, 1))
	require.NoError(t, first.AddItem(ctx, &book, 2))

	raw, found, err := h.persister.Load(ctx, "marketplace-cart:abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[{"productId":2,"quantity":1},{"productId":1,"quantity":2}]`, string(raw))

	reopened := h.open(t, "abc")
	assert.Equal(t, first.Items(), reopened.Items())

	other := h.open(t, "xyz")
	assert.Empty(t, other.Items())
}

func TestLoadDiscardsCorruptData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.persister.Save(ctx, "marketplace-cart:bad", []byte("{not json")))

	store := h.open(t, "bad")
	assert.Empty(t, store.Items())
	_, found, _ := h.persister.Load(ctx, "marketplace-cart:bad")
	assert.False(t, found)
}

func TestLoadNormalizesPersistedItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.persister.Save(ctx, "marketplace-cart:n", []byte(
		`[{"productId":1,"quantity":2},{"productId":1,"quantity":9},{"productId":2,"quantity":0},{"productId":3,"quantity":-1},{"productId":4,"quantity":1}]`,
	)))

	store := h.open(t, "n")
	assert.Equal(t, []models.CartLineItem{{ProductID: 1, Quantity: 2}, {ProductID: 4, Quantity: 1}}, store.Items())
}

func TestPersistFailuresDoNotFailMutations(t *testing.T) {
	metrics := newStubMetrics()
	sessions, err := NewSessions(newStubResolver(book), failingPersister{}, nil, nil, logger.Nop(), metrics, "")
	require.NoError(t, err)

	store, err := sessions.Open(context.Background(), "s1")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(context.Background(), &book, 1))
	assert.Equal(t, 1, store.TotalItems())
	assert.Equal(t, 1, metrics.persistFailures)
}

func TestSessionsValidation(t *testing.T) {
	_, err := NewSessions(nil, NewMemoryPersister(), nil, nil, logger.Nop(), nil, "")
	require.Error(t, err)
	_, err = NewSessions(newStubResolver(), nil, nil, nil, logger.Nop(), nil, "")
	require.Error(t, err)
	_, err = NewSessions(newStubResolver(), NewMemoryPersister(), nil, nil, nil, nil, "")
	require.Error(t, err)

	h := newHarness(t)
	_, err = h.sessions.Open(context.Background(), "  ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "marketplace-cart:s", h.sessions.Key("s"))
}

// Random operation sequences must keep every line within [1, stock] and TotalItems equal
// to the sum of line quantities.
func TestRandomSequencesKeepInvariants(t *testing.T) {
	products := []models.Product{book, toy, ghost, {ID: 4, Title: "Mug", Price: 7.5, InStock: true, StockCount: 1}}
	stock := map[int64]int{}
	for _, p := range products {
		stock[p.ID] = p.StockCount
	}

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		h := newHarness(t, products...)
		store := h.open(t, "prop")
		ctx := context.Background()

		for step := 0; step < 40; step++ {
			p := products[rng.Intn(len(products))]
			qty := rng.Intn(8) - 2
			switch rng.Intn(4) {
			case 0, 1:
				_ = store.AddItem(ctx, &p, qty)
			case 2:
				_ = store.UpdateQuantity(ctx, p.ID, qty)
			case 3:
				store.RemoveItem(ctx, p.ID)
			}

			sum := 0
			seen := map[int64]bool{}
			for _, item := range store.Items() {
				require.False(t, seen[item.ProductID], "duplicate line for %d", item.ProductID)
				seen[item.ProductID] = true
				require.GreaterOrEqual(t, item.Quantity, 1)
				require.LessOrEqual(t, item.Quantity, stock[item.ProductID])
				sum += item.Quantity
			}
			require.Equal(t, sum, store.TotalItems())
			require.False(t, store.IsInCart(ghost.ID))
		}
	}
}

func TestConcurrentMutations(t *testing.T) {
	big := models.Product{ID: 9, Title: "Bulk", Price: 1, InStock: true, StockCount: 1000}
	h := newHarness(t, big)
	store := h.open(t, "c")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AddItem(context.Background(), &big, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, store.ItemQuantity(big.ID))
}

func TestConcurrentRequestsOnSameSessionKeepBothChanges(t *testing.T) {
	h := newHarness(t, book, toy)
	ctx := context.Background()

	first := h.open(t, "shared")
	second := h.open(t, "shared")
	require.NoError(t, first.AddItem(ctx, &book, 1))
	require.NoError(t, second.AddItem(ctx, &toy, 1))

	assert.ElementsMatch(t, []models.CartLineItem{
		{ProductID: book.ID, Quantity: 1},
		{ProductID: toy.ID, Quantity: 1},
	}, h.open(t, "shared").Items())
	assert.Equal(t, 2, second.TotalItems())
}

func TestStaleStoreChecksStockAgainstSavedCart(t *testing.T) {
	h := newHarness(t, book)
	ctx := context.Background()

	stale := h.open(t, "stale")
	require.NoError(t, h.open(t, "stale").AddItem(ctx, &book, 4))

	err := stale.AddItem(ctx, &book, 2)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 4, h.open(t, "stale").ItemQuantity(book.ID))
}

func TestParallelRequestsRespectStock(t *testing.T) {
	h := newHarness(t, book)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := h.sessions.Open(context.Background(), "race")
			if err != nil {
				return
			}
			if store.AddItem(context.Background(), &book, 1) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, book.StockCount, ok)
	assert.Equal(t, book.StockCount, h.open(t, "race").ItemQuantity(book.ID))
}

type erroringLocker struct{}

func (erroringLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("lock backend down")
}

func TestLockFailureStillAppliesMutation(t *testing.T) {
	sessions, err := NewSessions(newStubResolver(book), NewMemoryPersister(), erroringLocker{}, nil, logger.Nop(), nil, "")
	require.NoError(t, err)

	store, err := sessions.Open(context.Background(), "s")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(context.Background(), &book, 2))
	assert.Equal(t, 2, store.TotalItems())
}
