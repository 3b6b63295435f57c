package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/models"
	"github.com/angelmondragon/storefront/pkg/recordstore"
	"github.com/angelmondragon/storefront/pkg/safejson"
	"go.uber.org/multierr"
)

// Product record columns.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldPrice          = "price"
	FieldOriginalPrice  = "original_price"
	FieldCategory       = "category"
	FieldSubcategory    = "subcategory"
	FieldRating         = "rating"
	FieldReviewCount    = "review_count"
	FieldInStock        = "in_stock"
	FieldStockCount     = "stock_count"
	FieldSpecifications = "specifications"
	FieldImages         = "images"
)

// ProductFields is the projection requested for every product fetch.
var ProductFields = []string{
	FieldTitle, FieldDescription, FieldPrice, FieldOriginalPrice, FieldCategory, FieldSubcategory,
	FieldRating, FieldReviewCount, FieldInStock, FieldStockCount, FieldSpecifications, FieldImages,
}

// camelCase spellings written by older clients.
var legacyFields = map[string]string{
	FieldOriginalPrice: "originalPrice",
	FieldReviewCount:   "reviewCount",
	FieldInStock:       "inStock",
	FieldStockCount:    "stockCount",
}

var errMissingID = errors.New("product record has no id")

// DecodeProduct maps a raw record onto a Product. Malformed JSON sub-fields fall back to
// empty values; the returned error lists them while the product stays usable. Only a
// missing id makes the product unusable, reported via errMissingID.
func DecodeProduct(rec recordstore.Record) (models.Product, error) {
	p := models.Product{
		ID:          rec.ID(),
		Title:       rec.String(FieldTitle),
		Description: rec.String(FieldDescription),
		Price:       rec.Float64(FieldPrice, 0),
		Category:    rec.String(FieldCategory),
		Subcategory: rec.String(FieldSubcategory),
		Rating:      rec.Float64(FieldRating, 0),
		ReviewCount: int(safejson.Int64(lookup(rec, FieldReviewCount), 0)),
		InStock:     safejson.Bool(lookup(rec, FieldInStock), false),
		StockCount:  int(safejson.Int64(lookup(rec, FieldStockCount), 0)),
	}
	if p.ID <= 0 {
		return p, errMissingID
	}
	if v, ok := safejson.Float64OK(lookup(rec, FieldOriginalPrice)); ok {
		p.OriginalPrice = &v
	}
	if p.StockCount < 0 {
		p.StockCount = 0
	}

	var errs error
	specs, err := safejson.Decode(rec[FieldSpecifications], map[string]any{})
	if err != nil && !errors.Is(err, safejson.ErrEmpty) {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", FieldSpecifications, err))
	}
	p.Specifications = stringMap(specs)

	images, err := safejson.Decode(rec[FieldImages], []string{})
	if err != nil && !errors.Is(err, safejson.ErrEmpty) {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", FieldImages, err))
	}
	if images == nil {
		images = []string{}
	}
	p.Images = images

	return p, errs
}

// EncodeProduct is the inverse of DecodeProduct. Specifications and images are written as
// JSON strings, the way the remote store keeps them.
func EncodeProduct(p models.Product) recordstore.Record {
	rec := recordstore.Record{
		FieldTitle:       p.Title,
		FieldDescription: p.Description,
		FieldPrice:       p.Price,
		FieldCategory:    p.Category,
		FieldSubcategory: p.Subcategory,
		FieldRating:      p.Rating,
		FieldReviewCount: p.ReviewCount,
		FieldInStock:     p.InStock,
		FieldStockCount:  p.StockCount,
	}
	if p.ID > 0 {
		rec[recordstore.FieldID] = p.ID
	}
	if p.OriginalPrice != nil {
		rec[FieldOriginalPrice] = *p.OriginalPrice
	}
	specs := p.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	rec[FieldSpecifications] = mustJSON(specs)
	images := p.Images
	if images == nil {
		images = []string{}
	}
	rec[FieldImages] = mustJSON(images)
	return rec
}

// lookup reads key, falling back to its legacy camelCase spelling.
func lookup(rec recordstore.Record, key string) any {
	if rec.Has(key) {
		return rec[key]
	}
	if legacy, ok := legacyFields[key]; ok {
		return rec[legacy]
	}
	return nil
}

func stringMap(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s := safejson.String(v, ""); s != "" {
			out[k] = s
		}
	}
	return out
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
