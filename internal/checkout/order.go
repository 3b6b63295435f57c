package checkout

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/recordstore"
	"github.com/angelmondragon/storefront/pkg/safejson"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Order record columns. Nested values travel as JSON strings.
const (
	FieldItems           = "items"
	FieldSubtotal        = "subtotal"
	FieldShipping        = "shipping"
	FieldTax             = "tax"
	FieldTotal           = "total"
	FieldShippingAddress = "shipping_address"
	FieldPaymentMethod   = "payment_method"
	FieldNotes           = "notes"
	FieldOrderDate       = "order_date"
	FieldTrackingNumber  = "tracking_number"
	FieldStatus          = "status"
)

const trackingPrefix = "MP"

// NewTrackingNumber returns "MP" followed by nine uppercase alphanumerics.
func NewTrackingNumber() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return trackingPrefix + strings.ToUpper(token[:9])
}

// EncodeOrder flattens an order into a record. The id is left to the store.
func EncodeOrder(o models.Order) recordstore.Record {
	items := o.Items
	if items == nil {
		items = []models.CartLineItem{}
	}
	return recordstore.Record{
		FieldItems:           mustJSON(items),
		FieldSubtotal:        o.Subtotal,
		FieldShipping:        o.Shipping,
		FieldTax:             o.Tax,
		FieldTotal:           o.Total,
		FieldShippingAddress: mustJSON(o.ShippingAddress),
		FieldPaymentMethod:   mustJSON(o.PaymentMethod),
		FieldNotes:           o.Notes,
		FieldOrderDate:       o.OrderDate.UTC().Format(time.RFC3339),
		FieldTrackingNumber:  o.TrackingNumber,
		FieldStatus:          string(o.Status),
	}
}

// DecodeOrder maps a record onto an Order. Malformed sub-fields fall back to empty values
// and are reported in the returned error while the order stays usable.
func DecodeOrder(rec recordstore.Record) (models.Order, error) {
	o := models.Order{
		ID:             rec.ID(),
		Subtotal:       rec.Float64(FieldSubtotal, 0),
		Shipping:       rec.Float64(FieldShipping, 0),
		Tax:            rec.Float64(FieldTax, 0),
		Total:          rec.Float64(FieldTotal, 0),
		Notes:          rec.String(FieldNotes),
		TrackingNumber: rec.String(FieldTrackingNumber),
		Status:         enums.OrderStatusPending,
	}

	var errs error
	items, err := safejson.Decode(rec[FieldItems], []models.CartLineItem{})
	errs = multierr.Append(errs, ignoreEmpty(FieldItems, err))
	o.Items = items

	addr, err := safejson.Decode(rec[FieldShippingAddress], types.ShippingAddress{})
	errs = multierr.Append(errs, ignoreEmpty(FieldShippingAddress, err))
	o.ShippingAddress = addr

	payment, err := safejson.Decode(rec[FieldPaymentMethod], models.PaymentSummary{})
	errs = multierr.Append(errs, ignoreEmpty(FieldPaymentMethod, err))
	o.PaymentMethod = payment

	if raw := rec.String(FieldOrderDate); raw != "" {
		when, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = multierr.Append(errs, fieldError{field: FieldOrderDate, err: err})
		}
		o.OrderDate = when
	}
	if status, err := enums.ParseOrderStatus(rec.String(FieldStatus)); err == nil {
		o.Status = status
	}
	return o, errs
}

type fieldError struct {
	field string
	err   error
}

func (e fieldError) Error() string { return e.field + ": " + e.err.Error() }
func (e fieldError) Unwrap() error { return e.err }

func ignoreEmpty(field string, err error) error {
	if err == nil || errors.Is(err, safejson.ErrEmpty) {
		return nil
	}
	return fieldError{field: field, err: err}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
