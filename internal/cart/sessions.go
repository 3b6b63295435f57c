package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// DefaultNamespace prefixes every persisted cart key.
const DefaultNamespace = "marketplace-cart"

// Sessions opens the cart belonging to a session key.
type Sessions struct {
	deps
	namespace string
}

type nopMetrics struct{}

func (nopMetrics) IncCartRejection(string) {}
func (nopMetrics) IncCartPersistFailure()  {}

// NewSessions wires the collaborators shared by every session's Store.
// locker, sink and metrics are optional; a nil locker serializes sessions in process.
func NewSessions(resolver ProductResolver, persister Persister, locker Locker, sink notifications.Sink, logg *logger.Logger, metrics Metrics, namespace string) (*Sessions, error) {
	if resolver == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	if persister == nil {
		return nil, fmt.Errorf("cart persister required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if sink == nil {
		sink = notifications.Discard{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	return &Sessions{
		deps: deps{
			resolver:  resolver,
			persister: persister,
			locker:    locker,
			sink:      sink,
			logg:      logg,
			metrics:   metrics,
		},
		namespace: namespace,
	}, nil
}

// Key returns the persistence key for sessionID.
func (s *Sessions) Key(sessionID string) string {
	return redis.Key(s.namespace, sessionID)
}

// Open loads the session's persisted cart.
func (s *Sessions) Open(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	store := &Store{deps: s.deps, key: s.Key(sessionID)}
	store.Load(s.logg.WithSessionID(ctx, sessionID))
	return store, nil
}
