package pagination

import "testing"

func TestDefaults(t *testing.T) {
	tests := []struct {
		name         string
		in           PageRequest
		wantPage     int
		wantPageSize int
		wantOffset   int
	}{
		{"empty", PageRequest{}, 1, DefaultPageSize, 0},
		{"third_page", PageRequest{Page: 3, PageSize: 10}, 3, 10, 20},
		{"clamped", PageRequest{Page: 2, PageSize: 1000}, 2, MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.in
			req.Defaults()
			if req.Page != tt.wantPage || req.PageSize != tt.wantPageSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d", req.Page, req.PageSize, tt.wantPage, tt.wantPageSize)
			}
			if req.Offset() != tt.wantOffset {
				t.Errorf("offset = %d, want %d", req.Offset(), tt.wantOffset)
			}
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[string](nil, PageRequest{Page: 1, PageSize: 20}, 41)
	if resp.Data == nil {
		t.Error("expected empty slice, got nil")
	}
	if resp.TotalPages != 3 {
		t.Errorf("total pages = %d, want 3", resp.TotalPages)
	}
}
