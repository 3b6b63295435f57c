package enums

import "testing"

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw     string
		want    SortKey
		wantErr bool
	}{
		{raw: "", want: SortFeatured},
		{raw: "price-low", want: SortPriceLow},
		{raw: " PRICE-HIGH ", want: SortPriceHigh},
		{raw: "newest", want: SortNewest},
		{raw: "name", want: SortName},
		{raw: "popularity", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSortKey(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseSortKey(%q) = %q, want %q", tt.raw, got, tt.want)
		}
		if !got.IsValid() {
			t.Fatalf("%q should be valid", got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if status, err := ParseOrderStatus("pending"); err != nil || status != OrderStatusPending {
		t.Fatalf("expected pending, got %q err=%v", status, err)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if OrderStatus("lost").IsValid() {
		t.Fatal("unknown status should be invalid")
	}
}
