package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParseStart(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"?start=1", 1},
		{"?start=51", 51},
		{"?start=0", 1},
		{"?start=-5", 1},
		{"?start=abc", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/posts"+tt.query, nil)
			if got := ParseStart(r); got != tt.want {
				t.Errorf("ParseStart(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", PageSize},
		{"?limit=10", 10},
		{"?limit=0", PageSize},
		{"?limit=x", PageSize},
		{"?limit=100000", MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/posts"+tt.query, nil)
			if got := ParseLimit(r, PageSize); got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	rows := make([]int, 45)
	for i := range rows {
		rows[i] = i + 1
	}

	tests := []struct {
		name      string
		start     int
		limit     int
		wantFirst int
		wantLen   int
		want      Page
	}{
		{
			name: "first page", start: 1, limit: 20, wantFirst: 1, wantLen: 20,
			want: Page{Start: 1, End: 20, Total: 45, HasNext: true, PrevStart: 1, NextStart: 21},
		},
		{
			name: "middle page", start: 21, limit: 20, wantFirst: 21, wantLen: 20,
			want: Page{Start: 21, End: 40, Total: 45, HasPrev: true, HasNext: true, PrevStart: 1, NextStart: 41},
		},
		{
			name: "last partial page", start: 41, limit: 20, wantFirst: 41, wantLen: 5,
			want: Page{Start: 41, End: 45, Total: 45, HasPrev: true, PrevStart: 21, NextStart: 46},
		},
		{
			name: "past the end", start: 100, limit: 20, wantLen: 0,
			want: Page{Total: 45, HasPrev: true, PrevStart: 80, NextStart: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page := Slice(rows, tt.start, tt.limit)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0] != tt.wantFirst {
				t.Errorf("first = %d, want %d", got[0], tt.wantFirst)
			}
			if page != tt.want {
				t.Errorf("page = %+v, want %+v", page, tt.want)
			}
		})
	}
}

func TestSliceEmpty(t *testing.T) {
	got, page := Slice([]string{}, 1, 10)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if page.Total != 0 || page.HasNext || page.HasPrev {
		t.Errorf("unexpected page %+v", page)
	}
}
