// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/pinmatch"
	"github.com/poiesic/pinmatch/ai"
	"github.com/poiesic/pinmatch/ai/openai"
	"github.com/poiesic/pinmatch/config"
	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/corpus"
	"github.com/poiesic/pinmatch/dataset"
	"github.com/poiesic/pinmatch/geocode"
	"github.com/poiesic/pinmatch/geocode/digipin"
	"github.com/poiesic/pinmatch/geocode/geohash"
	"github.com/poiesic/pinmatch/storage"
	"github.com/poiesic/pinmatch/storage/badger"
	"github.com/poiesic/pinmatch/textproc"
)

func importCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := appConfig(c)

	path := cfg.Dataset
	if c.Args().Present() {
		path = c.Args().First()
	}

	var opts []dataset.Option
	if c.Bool("all-offices") {
		opts = append(opts, dataset.WithAllOffices())
	}
	records, stats, err := dataset.NewLoader(opts...).LoadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	repo, err := openCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer repo.Close()

	n, err := repo.Import(ctx, records)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Dataset: %s\n", path)
	fmt.Fprintf(w, "Rows read: %d\n", stats.Rows)
	fmt.Fprintf(w, "Skipped (missing office or pincode): %d\n", stats.MissingKey)
	fmt.Fprintf(w, "Skipped (non-delivery): %d\n", stats.NonDelivery)
	fmt.Fprintf(w, "Imported: %d into %s\n", n, cfg.CatalogDir)
	return nil
}

func matchCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := appConfig(c)

	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("address text is required")
	}
	topK := cfg.Match.TopK
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}

	var source pinmatch.RecordSource
	if csvPath := c.String("csv"); csvPath != "" {
		source = dataset.NewCSVSource(csvPath)
	} else {
		repo, err := openCatalog(cfg)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer repo.Close()
		source = repo
	}

	provider, err := openai.NewProvider(cfg.AIConfig())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	defer provider.Close()
	slog.Debug("embedding provider ready", "model", provider.Model(), "host", cfg.Embedding.Host)

	engine, err := newEngine(cfg, source, provider.Embedder())
	if err != nil {
		return err
	}
	defer engine.Close()

	resp, err := engine.Match(ctx, query, topK, c.Bool("enrich"))
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	writeMatches(c.App.Writer, resp)
	return nil
}

func openCatalog(cfg *config.Config) (storage.CatalogRepository, error) {
	return badger.NewCatalogRepository(cfg.CatalogDir, badger.WithBackendLogger(slog.Default()))
}

func newEngine(cfg *config.Config, source pinmatch.RecordSource, embedder ai.Embedder) (*pinmatch.Engine, error) {
	coder, err := newGeocoder(cfg)
	if err != nil {
		return nil, err
	}

	opts := []pinmatch.Option{
		pinmatch.WithCacheDir(cfg.CacheDir),
		pinmatch.WithLogger(slog.Default()),
		pinmatch.WithOverFetch(cfg.Match.OverFetch),
		pinmatch.WithBatchSize(cfg.Embedding.BatchSize),
		pinmatch.WithPoolSize(cfg.Embedding.PoolSize),
		pinmatch.WithEnrichTimeout(cfg.EnrichTimeout()),
		pinmatch.WithProgress(os.Stderr),
	}
	if coder != nil {
		opts = append(opts, pinmatch.WithGeocoder(coder))
	}
	return pinmatch.NewEngine(source, embedder, opts...)
}

func newGeocoder(cfg *config.Config) (geocode.Coder, error) {
	switch cfg.Geocode.Type {
	case config.GeocoderDigipin:
		opts := []digipin.Option{digipin.WithLogger(slog.Default())}
		if cfg.Geocode.TimeoutSecs > 0 {
			opts = append(opts, digipin.WithTimeout(time.Duration(cfg.Geocode.TimeoutSecs)*time.Second))
		}
		if cfg.Geocode.RateLimit > 0 {
			opts = append(opts, digipin.WithRateLimit(cfg.Geocode.RateLimit, cfg.Geocode.Burst))
		}
		client, err := digipin.New(cfg.Geocode.DigipinURL, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.GeocoderGeohash:
		coder, err := geohash.New(cfg.Geocode.Precision)
		if err != nil {
			return nil, err
		}
		return coder, nil
	default:
		return nil, nil
	}
}

func normalizeCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("address text is required")
	}

	components := textproc.ExtractComponents(text)
	w := c.App.Writer
	fmt.Fprintf(w, "Normalized: %s\n", textproc.Normalize(text))
	fmt.Fprintf(w, "Cleaned:    %s\n", textproc.Clean(text))
	fmt.Fprintf(w, "Pincode:    %s\n", orDash(components.Pincode))
	fmt.Fprintf(w, "State:      %s\n", orDash(components.State))
	return nil
}

func lookupCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := appConfig(c)

	repo, err := openCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer repo.Close()

	var records []core.Record
	switch {
	case c.String("id") != "":
		id, perr := strconv.ParseUint(c.String("id"), 16, 64)
		if perr != nil {
			return fmt.Errorf("invalid id %q: %w", c.String("id"), perr)
		}
		var record *core.Record
		record, err = repo.ByID(ctx, core.ID(id))
		if record != nil {
			records = []core.Record{*record}
		}
	case c.String("pincode") != "":
		records, err = repo.ByPincode(ctx, c.String("pincode"))
	case c.String("office") != "":
		records, err = repo.ByOffice(ctx, c.String("office"), c.Int("limit"))
	case c.String("district") != "":
		records, err = repo.ByDistrict(ctx, c.String("district"), c.Int("limit"))
	default:
		return errors.New("one of --id, --pincode, --office or --district is required")
	}
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d offices\n", len(records))
	for i := range records {
		fmt.Fprintf(w, "%016x  %s\n", uint64(records[i].ID()), formatRecord(&records[i]))
	}
	return nil
}

func cacheStatusCommand(c *cli.Context) error {
	status := storage.NewManager(appConfig(c).CacheDir).Status()

	w := c.App.Writer
	fmt.Fprintf(w, "Cache: %s\n", status.Dir)
	for _, a := range status.Artifacts {
		state := "missing"
		if a.Present {
			state = storage.FormatSize(a.Size)
		}
		fmt.Fprintf(w, "  %-18s %s\n", a.Name, state)
	}
	if status.Present {
		fmt.Fprintf(w, "Status: present (%s)\n", storage.FormatSize(status.TotalSize))
	} else {
		fmt.Fprintln(w, "Status: absent")
	}
	return nil
}

func cacheClearCommand(c *cli.Context) error {
	m := storage.NewManager(appConfig(c).CacheDir)
	if err := m.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Cleared %s\n", m.Dir())
	return nil
}

type matchView struct {
	Rank          int      `json:"rank"`
	OfficeName    string   `json:"officename"`
	Pincode       string   `json:"pincode"`
	District      string   `json:"district"`
	State         string   `json:"state"`
	Similarity    float32  `json:"similarity"`
	Confidence    float32  `json:"confidence"`
	MatchedTokens []string `json:"matched_tokens"`
	TokenOverlap  float64  `json:"token_overlap"`
	Digipin       string   `json:"digipin"`
}

type responseView struct {
	RequestID        string      `json:"request_id"`
	Query            string      `json:"query"`
	NormalizedQuery  string      `json:"normalized_query"`
	Matches          []matchView `json:"matches"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
}

func newResponseView(resp *core.MatchResponse) responseView {
	view := responseView{
		RequestID:        resp.RequestID,
		Query:            resp.Query,
		NormalizedQuery:  resp.NormalizedQuery,
		Matches:          make([]matchView, len(resp.Matches)),
		ProcessingTimeMs: resp.ProcessingTimeMs,
	}
	for i, m := range resp.Matches {
		view.Matches[i] = matchView{
			Rank:          m.Rank,
			OfficeName:    m.Record.OfficeName,
			Pincode:       m.Record.Pincode,
			District:      m.Record.District,
			State:         m.Record.State,
			Similarity:    m.Similarity,
			Confidence:    m.Confidence,
			MatchedTokens: m.MatchedTokens,
			TokenOverlap:  textproc.Jaccard(resp.NormalizedQuery, corpus.SearchText(m.Record)),
			Digipin:       m.Enrichment.Display(),
		}
	}
	return view
}

func writeJSON(w io.Writer, resp *core.MatchResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newResponseView(resp))
}

func writeMatches(w io.Writer, resp *core.MatchResponse) {
	fmt.Fprintf(w, "Query: %s\n", resp.Query)
	fmt.Fprintf(w, "Normalized: %s\n", resp.NormalizedQuery)
	fmt.Fprintf(w, "Found %d matches in %.1fms\n", len(resp.Matches), resp.ProcessingTimeMs)
	for _, m := range resp.Matches {
		fmt.Fprintf(w, "%2d. %s\n", m.Rank, formatRecord(m.Record))
		fmt.Fprintf(w, "    confidence %.4f  similarity %.4f  digipin %s\n",
			m.Confidence, m.Similarity, m.Enrichment.Display())
		if len(m.MatchedTokens) > 0 {
			fmt.Fprintf(w, "    matched: %s\n", strings.Join(m.MatchedTokens, " "))
		}
	}
}

func formatRecord(r *core.Record) string {
	return fmt.Sprintf("%s, %s, %s %s", r.OfficeName, r.District, r.State, r.Pincode)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
