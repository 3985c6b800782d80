package tui

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Batman", 10, "Batman"},
		{"Batman Returns", 10, "Batman ..."},
		{"line\nbreak", 20, "line break"},
		{"東京都", 5, "東..."},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		got := truncateRunes(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if w := runewidth.StringWidth(got); w > tt.width {
			t.Errorf("truncateRunes(%q, %d) width = %d", tt.in, tt.width, w)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abc" {
		t.Errorf("padRight truncation = %q", got)
	}
	if got := padRight("東京", 5); got != "東京 " {
		t.Errorf("padRight wide = %q", got)
	}
}

func TestColumnWidths(t *testing.T) {
	header := []string{"#", "title", "year"}
	rows := [][]string{
		{"1", "Batman", "1989"},
		{"2", "Batman Returns", "1992"},
	}

	if diff := cmp.Diff([]int{1, 14, 4}, columnWidths(header, rows, 80)); diff != "" {
		t.Errorf("widths mismatch (-want +got):\n%s", diff)
	}

	// 12 cells leave 10 for content after two separators.
	if diff := cmp.Diff([]int{1, 5, 4}, columnWidths(header, rows, 12)); diff != "" {
		t.Errorf("shrunk widths mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatRow(t *testing.T) {
	got := formatRow([]string{"1", "Batman Returns"}, []int{2, 8})
	if got != "1  Batma..." {
		t.Errorf("formatRow = %q", got)
	}
}
