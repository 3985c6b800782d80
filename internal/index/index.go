// Package index provides an in-memory q-gram index for fuzzy prefix search
// over tab-separated record files.
package index

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxLineBytes bounds a single record line.
const maxLineBytes = 1 << 20

// Record is one indexed line.
type Record struct {
	ID         string
	Key        string   // Searched column, as read
	Normalized string   // Key after normalization
	Values     []string // Display values, aligned with Schema.Fields
}

// Posting is an entry of an inverted list: a record and how often the
// q-gram occurs in its normalized key.
type Posting struct {
	RecordID int
	Count    int
}

// Match is a record within the requested prefix edit distance.
type Match struct {
	RecordID int
	Record   Record
	PED      int
}

// Index is a q-gram index. It is immutable once loaded and safe for
// concurrent readers.
type Index struct {
	q       int
	schema  Schema
	records []Record // record ID n is records[n-1]
	lists   map[string][]Posting
	enc     encoding.Encoding // nil: detect per file
}

// New creates an empty index with q-grams of length q.
func New(q int, schema Schema) (*Index, error) {
	if q < 1 {
		return nil, fmt.Errorf("q must be at least 1, got %d", q)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Index{
		q:      q,
		schema: schema,
		lists:  make(map[string][]Posting),
	}, nil
}

// Schema returns the record layout of the index.
func (idx *Index) Schema() Schema { return idx.schema }

// Len returns the number of indexed records.
func (idx *Index) Len() int { return len(idx.records) }

// Record returns the record with the given 1-based ID.
func (idx *Index) Record(id int) (Record, bool) {
	if id < 1 || id > len(idx.records) {
		return Record{}, false
	}
	return idx.records[id-1], true
}

// Postings returns the inverted list for qgram.
func (idx *Index) Postings(qgram string) []Posting {
	return idx.lists[qgram]
}

// SetEncoding fixes the charset of record files read later. An empty name
// or "auto" detects it from the start of each file.
func (idx *Index) SetEncoding(name string) error {
	enc, err := EncodingByName(name)
	if err != nil {
		return err
	}
	idx.enc = enc
	return nil
}

// LoadFile reads records from the file at path.
func (idx *Index) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	if err := idx.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// ReadFrom reads one tab-separated record per line. Input is converted to
// UTF-8 first. Blank lines are skipped and missing columns read as empty.
func (idx *Index) ReadFrom(r io.Reader) error {
	r, err := decodeReader(r, idx.enc)
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := sanitizeUTF8(strings.TrimRight(scanner.Text(), "\r"))
		if line == "" {
			continue
		}
		idx.add(strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan records: %w", err)
	}
	return nil
}

func (idx *Index) add(cols []string) {
	col := func(i int) string {
		if i >= 0 && i < len(cols) {
			return cols[i]
		}
		return ""
	}

	recordID := len(idx.records) + 1
	rec := Record{
		ID:  col(idx.schema.IDColumn),
		Key: col(idx.schema.KeyColumn),
	}
	if idx.schema.IDColumn < 0 || rec.ID == "" {
		rec.ID = strconv.Itoa(recordID)
	} else if idx.schema.FreebaseIDs {
		rec.ID = strings.ReplaceAll(rec.ID, ".", "/")
	}
	rec.Normalized = Normalize(rec.Key)
	rec.Values = make([]string, len(idx.schema.Fields))
	for i, f := range idx.schema.Fields {
		rec.Values[i] = col(f.Column)
	}
	idx.records = append(idx.records, rec)

	for _, qgram := range idx.QGrams(rec.Normalized) {
		list := idx.lists[qgram]
		// Records are added in ID order, so a repeat can only hit the tail.
		if n := len(list); n > 0 && list[n-1].RecordID == recordID {
			list[n-1].Count++
		} else {
			list = append(list, Posting{RecordID: recordID, Count: 1})
		}
		idx.lists[qgram] = list
	}
}

// QGrams returns all q-grams of s, padded at the front with q-1 '$'.
func (idx *Index) QGrams(s string) []string {
	return qgrams(s, idx.q)
}

func qgrams(s string, q int) []string {
	padded := []rune(strings.Repeat("$", q-1) + s)
	if len(padded) < q {
		return nil
	}
	out := make([]string, 0, len(padded)-q+1)
	for i := 0; i+q <= len(padded); i++ {
		out = append(out, string(padded[i:i+q]))
	}
	return out
}

// foldMarks strips combining marks after canonical decomposition.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases s, folds accents and drops everything that is not a
// letter, digit or underscore.
func Normalize(s string) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Merge computes the union of sorted inverted lists, summing the counts of
// postings for the same record.
func Merge(lists [][]Posting) []Posting {
	var merged []Posting
	for _, l2 := range lists {
		l1 := merged
		merged = make([]Posting, 0, len(l1)+len(l2))
		i, j := 0, 0
		for i < len(l1) && j < len(l2) {
			switch {
			case l1[i].RecordID < l2[j].RecordID:
				merged = append(merged, l1[i])
				i++
			case l1[i].RecordID == l2[j].RecordID:
				merged = append(merged, Posting{RecordID: l1[i].RecordID, Count: l1[i].Count + l2[j].Count})
				i++
				j++
			default:
				merged = append(merged, l2[j])
				j++
			}
		}
		merged = append(merged, l1[i:]...)
		merged = append(merged, l2[j:]...)
	}
	return merged
}

// PrefixEditDistance returns the smallest edit distance between p and any
// prefix of s.
func PrefixEditDistance(p, s string) int {
	pr, sr := []rune(p), []rune(s)
	n, m := len(pr), len(sr)

	row := make([]int, m+1)
	for j := range row {
		row[j] = j
	}
	prev := make([]int, m+1)

	for i := 1; i <= n; i++ {
		prev, row = row, prev
		row[0] = i
		for j := 1; j <= m; j++ {
			replace := prev[j-1]
			if pr[i-1] != sr[j-1] {
				replace++
			}
			row[j] = min(prev[j]+1, row[j-1]+1, replace)
		}
	}

	best := row[0]
	for _, v := range row[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

// FindMatches returns up to k records whose normalized key has a prefix
// within edit distance delta of the normalized prefix. Matches are ordered by
// PED, then by record order. k <= 0 means no limit.
func (idx *Index) FindMatches(prefix string, delta, k int) []Match {
	p := Normalize(prefix)
	if p == "" {
		return nil
	}

	var lists [][]Posting
	for _, qgram := range idx.QGrams(p) {
		if list, ok := idx.lists[qgram]; ok {
			lists = append(lists, list)
		}
	}

	threshold := len([]rune(p)) - idx.q*delta
	var matches []Match
	for _, posting := range Merge(lists) {
		if posting.Count < threshold {
			continue
		}
		rec := idx.records[posting.RecordID-1]
		ped := PrefixEditDistance(p, rec.Normalized)
		if ped > delta {
			continue
		}
		matches = append(matches, Match{RecordID: posting.RecordID, Record: rec, PED: ped})
	}

	// Postings are in record order, so a stable sort keeps it within a PED.
	slices.SortStableFunc(matches, func(a, b Match) int { return cmp.Compare(a.PED, b.PED) })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
