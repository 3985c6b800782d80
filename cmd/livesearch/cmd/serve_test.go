package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/wesm/livesearch/internal/api"
	"github.com/wesm/livesearch/internal/config"
	"github.com/wesm/livesearch/internal/search"
)

const citiesTSV = "Zurich\tCH\tZH\t341730\n" +
	"Zug\tCH\tZG\t30934\n" +
	"London\tGB\tENG\t8982000\n"

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.tsv")
	if err := os.WriteFile(path, []byte(citiesTSV), 0644); err != nil {
		t.Fatalf("write records: %v", err)
	}
	return path
}

func loadTestConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	home := t.TempDir()
	t.Setenv("LIVESEARCH_HOME", home)
	if content != "" {
		if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	c, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c
}

func TestApplyServeFlags(t *testing.T) {
	c := loadTestConfig(t, "[index]\nfile = \"/from/config.tsv\"\nschema = \"cities\"\n")

	if err := applyServeFlags(c, nil); err != nil {
		t.Fatalf("applyServeFlags() error = %v", err)
	}
	if c.Index.File != "/from/config.tsv" {
		t.Errorf("Index.File = %q", c.Index.File)
	}

	if err := applyServeFlags(c, []string{"/from/arg.tsv"}); err != nil {
		t.Fatalf("applyServeFlags() error = %v", err)
	}
	if c.Index.File != "/from/arg.tsv" {
		t.Errorf("Index.File = %q, want the argument", c.Index.File)
	}
}

func TestApplyServeFlags_RequiresFile(t *testing.T) {
	c := loadTestConfig(t, "")
	err := applyServeFlags(c, nil)
	if err == nil || !strings.Contains(err.Error(), "no record file") {
		t.Errorf("applyServeFlags() error = %v, want missing file", err)
	}
}

func TestLoadIndex(t *testing.T) {
	idx, err := loadIndex(config.IndexConfig{File: writeRecords(t), Schema: "cities", Q: 3})
	if err != nil {
		t.Fatalf("loadIndex() error = %v", err)
	}
	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}

	if _, err := loadIndex(config.IndexConfig{File: writeRecords(t), Schema: "books", Q: 3}); err == nil {
		t.Error("unknown schema should fail")
	}
	if _, err := loadIndex(config.IndexConfig{File: "/does/not/exist.tsv", Schema: "cities", Q: 3}); err == nil {
		t.Error("missing file should fail")
	}
}

// TestQueryAgainstServer runs the endpoint and the HTTP query service
// against each other.
func TestQueryAgainstServer(t *testing.T) {
	c := loadTestConfig(t, "")
	c.Index = config.IndexConfig{File: writeRecords(t), Schema: "cities", Q: 3, MaxDistance: 1, MaxResults: 5}

	idx, err := loadIndex(c.Index)
	if err != nil {
		t.Fatalf("loadIndex() error = %v", err)
	}
	srv := api.NewServer(c, idx, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	c.Search.URL = "http://" + ln.Addr().String()
	client, err := newSearchClient(c.Search, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newSearchClient() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	items, err := client.Do(ctx, "zu")
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	var cities []string
	for _, it := range items {
		v, _ := it.Get("city")
		cities = append(cities, v)
	}
	if diff := cmp.Diff([]string{"Zurich", "Zug"}, cities); diff != "" {
		t.Errorf("cities mismatch (-want +got):\n%s", diff)
	}
	if items[0].ID != "1" {
		t.Errorf("ID = %q, want 1", items[0].ID)
	}
}

func TestRunServeStopsOnCancel(t *testing.T) {
	c := loadTestConfig(t, "")
	c.Server.Port = freePort(t)
	c.Index.Schema = "cities"

	savedCfg, savedLogger := cfg, logger
	cfg, logger = c, slog.New(slog.NewTextHandler(io.Discard, nil))
	defer func() { cfg, logger = savedCfg, savedLogger }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c2 := &cobra.Command{}
	c2.SetContext(ctx)
	var out bytes.Buffer
	c2.SetOut(&out)

	done := make(chan error, 1)
	go func() { done <- runServe(c2, []string{writeRecords(t)}) }()

	// Wait until the server answers, then stop it.
	healthURL := "http://" + c.Server.Addr() + "/health"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServe() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}
	if !strings.Contains(out.String(), "serving 3 records") {
		t.Errorf("output = %q", out.String())
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testItems() []search.Item {
	return []search.Item{
		{ID: "m.0bth54", Fields: []search.Field{{Name: "title", Value: "Batman"}, {Name: "year", Value: "1989"}}},
		{ID: "m.0bk1p", Fields: []search.Field{{Name: "title", Value: "Batman Returns"}, {Name: "year", Value: "1992"}}},
	}
}

func TestWriteItemsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeItemsTable(&buf, testItems()); err != nil {
		t.Fatalf("writeItemsTable() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"#  TITLE", "YEAR", "2  Batman Returns  1992", "Showing 2 results"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteItemsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeItemsJSON(&buf, testItems()); err != nil {
		t.Fatalf("writeItemsJSON() error = %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	want := []map[string]string{
		{"id": "m.0bth54", "title": "Batman", "year": "1989"},
		{"id": "m.0bk1p", "title": "Batman Returns", "year": "1992"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
	// Keys keep field order.
	if !strings.Contains(buf.String(), `{"id": "m.0bth54", "title": "Batman", "year": "1989"}`) {
		t.Errorf("field order lost:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeItemsJSON(&buf, nil); err != nil {
		t.Fatalf("writeItemsJSON(nil) error = %v", err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("empty output = %q, want []", buf.String())
	}
}
