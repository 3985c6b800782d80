package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/livesearch/internal/api"
	"github.com/wesm/livesearch/internal/config"
	"github.com/wesm/livesearch/internal/index"
	"golang.org/x/sync/errgroup"
)

var (
	serveSchema      string
	servePort        int
	serveQ           int
	serveMaxDistance int
	serveMaxResults  int
	serveEncoding    string
)

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve fuzzy prefix search over a record file",
	Long: `Load a tab-separated record file into a q-gram index and answer
GET /?q=<prefix> with a JSON array of matching records.

Built-in schemas:
  movies   id, title, year       (title is searched)
  cities   city, country_code, region, population  (city is searched)

The file and tuning can also be set in config.toml:
  [index]
  file = "~/data/movies.tsv"
  schema = "movies"
  max_distance = 1
  max_results = 5
  encoding = "latin1"   # default: detected from the file

Other endpoints:
  /health    liveness and record count
  /metrics   Prometheus metrics

Use Ctrl+C to stop the server gracefully.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSchema, "schema", "", "record schema (movies, cities)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().IntVar(&serveQ, "q", 0, "q-gram length (default from config)")
	serveCmd.Flags().IntVar(&serveMaxDistance, "max-distance", -1, "max prefix edit distance (default from config)")
	serveCmd.Flags().IntVar(&serveMaxResults, "max-results", 0, "results per query (default from config)")
	serveCmd.Flags().StringVar(&serveEncoding, "encoding", "", "record file charset, e.g. utf-8, latin1 (default: detect)")
	rootCmd.AddCommand(serveCmd)
}

// applyServeFlags overrides config values with flags the user set.
func applyServeFlags(c *config.Config, args []string) error {
	if len(args) == 1 {
		c.Index.File = args[0]
	}
	if serveSchema != "" {
		c.Index.Schema = serveSchema
	}
	if servePort > 0 {
		c.Server.Port = servePort
	}
	if serveQ > 0 {
		c.Index.Q = serveQ
	}
	if serveMaxDistance >= 0 {
		c.Index.MaxDistance = serveMaxDistance
	}
	if serveMaxResults > 0 {
		c.Index.MaxResults = serveMaxResults
	}
	if serveEncoding != "" {
		c.Index.Encoding = serveEncoding
	}
	if c.Index.File == "" {
		return fmt.Errorf("no record file given\n\nPass one as an argument or set it in %s:\n\n  [index]\n  file = \"/path/to/movies.tsv\"", c.ConfigFilePath())
	}
	return c.Validate()
}

// loadIndex builds the index described by the [index] section.
func loadIndex(c config.IndexConfig) (*index.Index, error) {
	schema, err := index.SchemaByName(c.Schema)
	if err != nil {
		return nil, err
	}
	idx, err := index.New(c.Q, schema)
	if err != nil {
		return nil, err
	}
	if err := idx.SetEncoding(c.Encoding); err != nil {
		return nil, err
	}
	if err := idx.LoadFile(c.File); err != nil {
		return nil, err
	}
	return idx, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := applyServeFlags(cfg, args); err != nil {
		return err
	}

	start := time.Now()
	idx, err := loadIndex(cfg.Index)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	logger.Info("index built",
		"file", cfg.Index.File,
		"schema", cfg.Index.Schema,
		"records", idx.Len(),
		"duration", time.Since(start),
	)

	srv := api.NewServer(cfg, idx, logger)

	fmt.Fprintf(cmd.OutOrStdout(), "livesearch serving %d records on http://%s\n", idx.Len(), cfg.Server.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop.")

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("search server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("search server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}
