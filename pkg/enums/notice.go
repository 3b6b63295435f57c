package enums

// NoticeLevel is the severity shown to the shopper.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// NoticeKind identifies which cart or checkout event produced a notice.
type NoticeKind string

const (
	NoticeProductUnavailable NoticeKind = "product_unavailable"
	NoticeInsufficientStock  NoticeKind = "insufficient_stock"
	NoticeItemAdded          NoticeKind = "item_added"
	NoticeItemRemoved        NoticeKind = "item_removed"
	NoticeCartCleared        NoticeKind = "cart_cleared"
	NoticeOrderPlaced        NoticeKind = "order_placed"
	NoticeOrderFailed        NoticeKind = "order_failed"
)
