package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Limit: DefaultLimit, Offset: 0}},
		{"?limit=50&offset=10", Params{Limit: 50, Offset: 10}},
		{"?limit=500", Params{Limit: MaxLimit, Offset: 0}},
		{"?limit=0", Params{Limit: DefaultLimit, Offset: 0}},
		{"?limit=abc&offset=xyz", Params{Limit: DefaultLimit, Offset: 0}},
		{"?offset=-5", Params{Limit: DefaultLimit, Offset: 0}},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/alerts"+tt.query, nil), httptest.NewRecorder())
			if got := FromContext(c); got != tt.want {
				t.Errorf("FromContext(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name   string
		params Params
		want   []int
	}{
		{"first page", Params{Limit: 2, Offset: 0}, []int{1, 2}},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}},
		{"partial last page", Params{Limit: 2, Offset: 4}, []int{5}},
		{"past end", Params{Limit: 2, Offset: 10}, []int{}},
		{"limit larger than items", Params{Limit: 20, Offset: 0}, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Page(items, tt.params)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	alerts := []string{"a1", "a2", "a3", "a4", "a5"}

	r := Paginate(alerts, Params{Limit: 2, Offset: 2})
	if r.Total != 5 || r.Limit != 2 || r.Offset != 2 {
		t.Errorf("unexpected envelope: %+v", r)
	}
	if len(r.Data) != 2 || r.Data[0] != "a3" {
		t.Errorf("unexpected window: %v", r.Data)
	}
	if !r.HasMore {
		t.Error("expected has_more with one item left")
	}

	last := Paginate(alerts, Params{Limit: 2, Offset: 4})
	if last.HasMore {
		t.Error("expected has_more false on the last page")
	}

	empty := Paginate([]string(nil), Params{Limit: 20})
	if empty.Data == nil || empty.Total != 0 || empty.HasMore {
		t.Errorf("unexpected empty envelope: %+v", empty)
	}
}
