// Package recordstore is the client side of the remote record-storage API: typed fetch
// parameters, the success/data/message envelopes and two interchangeable backends.
package recordstore

import (
	"context"
	"time"
)

// Tables used by the storefront.
const (
	TableProducts = "products"
	TableOrders   = "orders"
)

// Store is the CRUD surface consumed by the catalog and checkout packages.
type Store interface {
	Fetch(ctx context.Context, table string, params FetchParams) (*Envelope, error)
	Get(ctx context.Context, table string, id int64, fields []string) (*Envelope, error)
	Create(ctx context.Context, table string, records []Record) (*MutationEnvelope, error)
	Update(ctx context.Context, table string, records []Record) (*MutationEnvelope, error)
	Delete(ctx context.Context, table string, ids []int64) (*MutationEnvelope, error)
}

// Observer receives call timings; pkg/metrics implements it.
type Observer interface {
	ObserveRecordStore(backend, op string, took time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRecordStore(string, string, time.Duration, error) {}
