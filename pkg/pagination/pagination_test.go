package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{name: "zero value clamped", in: Params{}, want: Params{Page: 1, PageSize: 1}},
		{name: "default kept", in: Default(), want: Params{Page: 1, PageSize: DefaultPageSize}},
		{name: "zero page size clamped to one", in: Params{Page: 1, PageSize: 0}, want: Params{Page: 1, PageSize: 1}},
		{name: "negative page floored", in: Params{Page: -3, PageSize: 10}, want: Params{Page: 1, PageSize: 10}},
		{name: "page size clamped high", in: Params{Page: 2, PageSize: 500}, want: Params{Page: 2, PageSize: MaxPageSize}},
		{name: "page size clamped low", in: Params{Page: 2, PageSize: -5}, want: Params{Page: 2, PageSize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewPageComputesTotals(t *testing.T) {
	page := NewPage([]string{"a", "b"}, Params{Page: 3, PageSize: 2}, 5)
	if page.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", page.TotalPages)
	}
	if page.Page != 3 || page.PageSize != 2 || page.Total != 5 {
		t.Fatalf("unexpected page metadata %+v", page)
	}
	if got := (Params{Page: 3, PageSize: 2}).Offset(); got != 4 {
		t.Fatalf("expected offset 4, got %d", got)
	}

	empty := NewPage[string](nil, Params{}, 0)
	if empty.Data == nil || empty.TotalPages != 0 || empty.PageSize != 1 {
		t.Fatalf("expected empty non-nil page, got %+v", empty)
	}
}
