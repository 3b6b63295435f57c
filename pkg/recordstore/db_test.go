package recordstore

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDBStore(t *testing.T, obs Observer) *DBStore {
	t.Helper()
	dsn := "file:records_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		t.Fatalf("migrate records: %v", err)
	}
	store, err := NewDBStore(db, logger.Nop(), obs)
	require.NoError(t, err)
	return store
}

func TestNewDBStoreRequiresDB(t *testing.T) {
	_, err := NewDBStore(nil, nil, nil)
	require.Error(t, err)
}

func TestDBStoreCreateFetchGet(t *testing.T) {
	obs := &recordingObserver{}
	store := newTestDBStore(t, obs)
	ctx := context.Background()

	env, err := store.Create(ctx, TableProducts, []Record{
		{"title": "Lamp", "category": "Home", "price": 19.99},
		{"title": "Mouse", "category": "Electronics", "price": 25},
		{"id": 999, "title": "Hub", "category": "Electronics", "price": 12},
	})
	require.NoError(t, err)
	created, err := Results(env)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.NotZero(t, created[0].ID())
	assert.NotEqual(t, int64(999), created[2].ID())

	fetched, err := store.Fetch(ctx, TableProducts, FetchParams{
		Where:   []Condition{Equal("category", "Electronics")},
		OrderBy: []OrderBy{Ascending("price")},
	})
	require.NoError(t, err)
	rows, err := fetched.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Hub", rows[0].String("title"))
	assert.Equal(t, 2, fetched.Total)

	got, err := store.Get(ctx, TableProducts, created[0].ID(), []string{"title"})
	require.NoError(t, err)
	rows, err = got.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lamp", rows[0].String("title"))
	assert.False(t, rows[0].Has("price"))

	assert.Contains(t, obs.calls, "db:create:ok")
	assert.Contains(t, obs.calls, "db:fetch:ok")
}

func TestDBStoreCollectionsAreIsolated(t *testing.T) {
	store := newTestDBStore(t, nil)
	ctx := context.Background()

	_, err := store.Create(ctx, TableOrders, []Record{{"total": 10}})
	require.NoError(t, err)

	env, err := store.Fetch(ctx, TableProducts, FetchParams{})
	require.NoError(t, err)
	assert.Empty(t, env.Data)
}

func TestDBStoreGetMissing(t *testing.T) {
	store := newTestDBStore(t, nil)
	env, err := store.Get(context.Background(), TableProducts, 42, nil)
	require.NoError(t, err)
	_, err = env.Rows()
	assert.ErrorIs(t, err, ErrUnsuccessful)
}

func TestDBStoreUpdateMergesAndReportsMissing(t *testing.T) {
	store := newTestDBStore(t, nil)
	ctx := context.Background()

	env, err := store.Create(ctx, TableOrders, []Record{{"status": "pending", "total": 10}})
	require.NoError(t, err)
	created, err := Results(env)
	require.NoError(t, err)
	id := created[0].ID()

	upd, err := store.Update(ctx, TableOrders, []Record{{"id": id, "status": "shipped"}, {"id": id + 100}})
	require.NoError(t, err)
	assert.False(t, upd.Success)
	ok, err := Results(upd)
	require.Error(t, err)
	require.Len(t, ok, 1)
	assert.Equal(t, "shipped", ok[0].String("status"))
	assert.Equal(t, int64(10), ok[0].Int64("total", 0))

	got, err := store.Get(ctx, TableOrders, id, nil)
	require.NoError(t, err)
	rows, err := got.Rows()
	require.NoError(t, err)
	assert.Equal(t, "shipped", rows[0].String("status"))
}

func TestDBStoreFetchSkipsUndecodableRows(t *testing.T) {
	store := newTestDBStore(t, nil)
	ctx := context.Background()

	_, err := store.Create(ctx, TableProducts, []Record{{"title": "Lamp"}})
	require.NoError(t, err)
	require.NoError(t, store.db.Create(&recordRow{Collection: TableProducts, Data: "{broken"}).Error)
	_, err = store.Create(ctx, TableProducts, []Record{{"title": "Mouse"}})
	require.NoError(t, err)

	env, err := store.Fetch(ctx, TableProducts, FetchParams{})
	require.NoError(t, err)
	rows, err := env.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lamp", rows[0].String("title"))
	assert.Equal(t, "Mouse", rows[1].String("title"))
	assert.Equal(t, 2, env.Total)
}

func TestDBStoreDelete(t *testing.T) {
	obs := &recordingObserver{}
	store := newTestDBStore(t, obs)
	ctx := context.Background()

	env, err := store.Create(ctx, TableOrders, []Record{{"status": "pending", "total": 10}})
	require.NoError(t, err)
	created, err := Results(env)
	require.NoError(t, err)
	id := created[0].ID()

	deleted, err := store.Delete(ctx, TableOrders, []int64{id, id + 100})
	require.NoError(t, err)
	assert.False(t, deleted.Success)
	ok, err := Results(deleted)
	require.Error(t, err)
	require.Len(t, ok, 1)
	assert.Equal(t, id, ok[0].ID())
	assert.Equal(t, "pending", ok[0].String("status"))

	got, err := store.Get(ctx, TableOrders, id, nil)
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Contains(t, obs.calls, "db:delete:ok")
}
