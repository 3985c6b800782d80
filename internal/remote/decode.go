package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wesm/livesearch/internal/search"
)

// decodeItems parses a JSON array of flat objects. Key order within each
// object is preserved unless the client was given an explicit field list.
func (c *Client) decodeItems(r io.Reader) ([]search.Item, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	items := []search.Item{}
	for dec.More() {
		fields, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", len(items), err)
		}
		items = append(items, c.toItem(fields, len(items)))
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after result array")
	}
	return items, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// decodeObject reads one JSON object into ordered fields. Nested values are
// kept as compact JSON text.
func decodeObject(dec *json.Decoder) ([]search.Field, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var fields []search.Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("read value for %q: %w", key, err)
		}
		fields = append(fields, search.Field{Name: key, Value: displayValue(raw)})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return fields, nil
}

// displayValue renders a raw JSON value as display text.
func displayValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// toItem splits the ID field out of fields and applies the configured
// display order. Items without an ID get their 1-based position.
func (c *Client) toItem(fields []search.Field, idx int) search.Item {
	item := search.Item{ID: strconv.Itoa(idx + 1)}

	rest := make([]search.Field, 0, len(fields))
	for _, f := range fields {
		if f.Name == c.idField {
			item.ID = f.Value
			continue
		}
		rest = append(rest, f)
	}

	if len(c.fields) == 0 {
		item.Fields = rest
		return item
	}

	item.Fields = make([]search.Field, 0, len(c.fields))
	for _, name := range c.fields {
		for _, f := range rest {
			if strings.EqualFold(f.Name, name) {
				item.Fields = append(item.Fields, search.Field{Name: name, Value: f.Value})
				break
			}
		}
	}
	return item
}
