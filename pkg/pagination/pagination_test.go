package pagination

import (
	"net/url"
	"testing"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestFromQuery(t *testing.T) {
	p, err := FromQuery(url.Values{"limit": {"10"}, "offset": {"20"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Limit != 10 || p.Offset != 20 {
		t.Fatalf("unexpected params %+v", p)
	}

	p, err = FromQuery(url.Values{})
	if err != nil || p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("expected defaults, got %+v (%v)", p, err)
	}

	if _, err := FromQuery(url.Values{"offset": {"-1"}}); err == nil {
		t.Fatal("expected error for negative offset")
	}
	if _, err := FromQuery(url.Values{"limit": {"ten"}}); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}
}

func TestPageFor(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	page := p.PageFor(10, 25)
	if !page.HasMore || page.Total != 25 {
		t.Fatalf("unexpected page %+v", page)
	}
	page = p.PageFor(5, 15)
	if page.HasMore {
		t.Fatalf("expected last page, got %+v", page)
	}
}
