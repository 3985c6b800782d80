package index

import (
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

func TestEncodingByName(t *testing.T) {
	tests := []struct {
		name string
		want encoding.Encoding
	}{
		{"", nil},
		{"auto", nil},
		{"UTF-8", encoding.Nop},
		{" Latin1 ", charmap.ISO8859_1},
		{"windows-1252", charmap.Windows1252},
	}
	for _, tt := range tests {
		got, err := EncodingByName(tt.name)
		if err != nil {
			t.Errorf("EncodingByName(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EncodingByName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if _, err := EncodingByName("klingon"); err == nil {
		t.Error("EncodingByName(klingon) should fail")
	}
}

func TestDetectEncoding_UTF8(t *testing.T) {
	if got := DetectEncoding([]byte("Zürich\tCH\n")); got != encoding.Nop {
		t.Errorf("DetectEncoding(utf-8) = %v, want Nop", got)
	}
	// A multi-byte rune cut off by the sample boundary is still UTF-8.
	if got := DetectEncoding([]byte("Z\xc3")); got != encoding.Nop {
		t.Errorf("DetectEncoding(truncated) = %v, want Nop", got)
	}
}

func TestValidUTF8Prefix(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"plain", true},
		{"東京", true},
		{"東\xe4\xba", true},
		{"Z\xfcrich", false},
		{"\xff", false},
	}
	for _, tt := range tests {
		if got := validUTF8Prefix([]byte(tt.in)); got != tt.want {
			t.Errorf("validUTF8Prefix(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadFrom_Latin1(t *testing.T) {
	idx, _ := New(3, Cities)
	if err := idx.SetEncoding("latin1"); err != nil {
		t.Fatalf("SetEncoding() error = %v", err)
	}
	if err := idx.ReadFrom(strings.NewReader("Z\xfcrich\tCH\tZH\t341730\n")); err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}

	rec, _ := idx.Record(1)
	if rec.Key != "Zürich" {
		t.Errorf("Key = %q, want Zürich", rec.Key)
	}
	if got := idx.FindMatches("zur", 0, 5); len(got) != 1 {
		t.Errorf("FindMatches(zur) = %d matches, want 1", len(got))
	}
}

func TestReadFrom_DetectsNonUTF8(t *testing.T) {
	input := "Z\xfcrich\tCH\tZH\t341730\n" +
		"M\xfcnchen\tDE\tBY\t1488202\n" +
		"Gen\xe8ve\tCH\tGE\t203856\n"

	idx, _ := New(3, Cities)
	if err := idx.ReadFrom(strings.NewReader(input)); err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}
	for id := 1; id <= idx.Len(); id++ {
		rec, _ := idx.Record(id)
		if !utf8.ValidString(rec.Key) {
			t.Errorf("record %d key %q is not UTF-8", id, rec.Key)
		}
	}
}

func TestReadFrom_SanitizesInvalidUTF8(t *testing.T) {
	idx, _ := New(3, Cities)
	if err := idx.SetEncoding("utf-8"); err != nil {
		t.Fatalf("SetEncoding() error = %v", err)
	}
	if err := idx.ReadFrom(strings.NewReader("Ber\xffn\tCH\tBE\t1\n")); err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	rec, _ := idx.Record(1)
	if rec.Key != "Ber�n" {
		t.Errorf("Key = %q, want replacement character", rec.Key)
	}
}

func TestSetEncoding_Unknown(t *testing.T) {
	idx, _ := New(3, Cities)
	if err := idx.SetEncoding("klingon"); err == nil {
		t.Error("SetEncoding(klingon) should fail")
	}
}
