// Package notifications collects the shopper-facing notices raised while a request is
// handled. The HTTP layer returns them next to the response payload.
package notifications

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// Messages shown to the shopper.
const (
	MsgProductUnavailable = "This product is not available"
	MsgItemRemoved        = "Item removed from cart"
	MsgCartCleared        = "Cart cleared successfully"
	MsgOrderPlaced        = "Order placed successfully!"
	MsgOrderFailed        = "Failed to place order. Please try again."
)

type Notice struct {
	Level   enums.NoticeLevel
	Kind    enums.NoticeKind
	Message string
}

func Success(kind enums.NoticeKind, msg string) Notice {
	return Notice{Level: enums.NoticeSuccess, Kind: kind, Message: msg}
}

func Info(kind enums.NoticeKind, msg string) Notice {
	return Notice{Level: enums.NoticeInfo, Kind: kind, Message: msg}
}

func Error(kind enums.NoticeKind, msg string) Notice {
	return Notice{Level: enums.NoticeError, Kind: kind, Message: msg}
}

// Sink receives notices.
type Sink interface {
	Notify(ctx context.Context, n Notice)
}

// Collector buffers notices for one request.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(_ context.Context, n Notice) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

// Notices returns a copy of everything collected so far.
func (c *Collector) Notices() []Notice {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

type ctxKey struct{}

// WithCollector attaches c to ctx so a ContextSink can find it.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the request collector, or nil.
func FromContext(ctx context.Context) *Collector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(ctxKey{}).(*Collector)
	return c
}

// ContextSink forwards notices to the collector carried by the request context.
// Notices raised outside a request are dropped.
type ContextSink struct{}

func (ContextSink) Notify(ctx context.Context, n Notice) {
	FromContext(ctx).Notify(ctx, n)
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) {}
