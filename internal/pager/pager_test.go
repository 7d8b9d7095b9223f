package pager

import "testing"

func TestRange(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		wantFrom int
		wantTo   int
	}{
		{"first page", 0, 0, 19},
		{"second page", 1, 20, 39},
		{"tenth page", 9, 180, 199},
		{"negative clamps to first", -3, 0, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := Range(tt.page)
			if from != tt.wantFrom || to != tt.wantTo {
				t.Errorf("Range(%d) = [%d, %d], want [%d, %d]",
					tt.page, from, to, tt.wantFrom, tt.wantTo)
			}
			if to-from+1 != PageSize {
				t.Errorf("window size = %d, want %d", to-from+1, PageSize)
			}
		})
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{0, 0},
		{1, 1},
		{19, 1},
		{20, 1},
		{21, 2},
		{40, 2},
		{41, 3},
		{-5, 0},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total); got != tt.want {
			t.Errorf("TotalPages(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int
		want  int
	}{
		{"in range", 1, 45, 1},
		{"past last page", 5, 45, 2},
		{"negative", -1, 45, 0},
		{"empty collection", 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.page, tt.total); got != tt.want {
				t.Errorf("Clamp(%d, %d) = %d, want %d", tt.page, tt.total, got, tt.want)
			}
		})
	}
}

func TestState_PrevNext(t *testing.T) {
	s := State{Page: 0, Total: 45}

	if s.HasPrev() {
		t.Error("first page should have no prev")
	}
	if s.Prev().Page != 0 {
		t.Error("Prev on first page should stay at 0")
	}

	s = s.Next().Next()
	if s.Page != 2 {
		t.Fatalf("expected page 2, got %d", s.Page)
	}
	if s.HasNext() {
		t.Error("last page should have no next")
	}
	if s.Next().Page != 2 {
		t.Error("Next on last page should stay")
	}
	if s.Offset() != 40 {
		t.Errorf("expected offset 40, got %d", s.Offset())
	}
}

func TestState_SinglePage(t *testing.T) {
	s := State{Total: 7}
	if s.TotalPages() != 1 {
		t.Errorf("expected 1 page, got %d", s.TotalPages())
	}
	if s.HasNext() || s.HasPrev() {
		t.Error("single page should have neither prev nor next")
	}
}
