// Command thumbnails downloads thumbnail images referenced by records
// into a local assets directory, one best-effort attempt per record.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dropworks/drop-admin/internal/config"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/models"
	"github.com/dropworks/drop-admin/internal/store"
)

const (
	downloadTimeout = 10 * time.Second
	// A browser-like User-Agent: several thumbnail hosts reject generic clients.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

func main() {
	var configPath string
	var collection string
	var outDir string
	var limit int

	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.StringVar(&collection, "collection", "new-posts", "Collection to read records from")
	flag.StringVar(&outDir, "out", "public/assets", "Directory to write thumbnails into")
	flag.IntVar(&limit, "limit", 10, "Maximum number of thumbnails to download")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if !cfg.CollectionAllowed(collection) {
		fmt.Fprintf(os.Stderr, "Collection %q is not in the allow-list\n", collection)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Error("Failed to create output directory", logger.Error(err))
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := store.New(ctx, cfg.Mongo, log)
	if err != nil {
		log.Error("Failed to connect to store", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(ctx); closeErr != nil {
			log.Error("Failed to close store", logger.Error(closeErr))
		}
	}()

	records, err := db.Records().ListWithThumbnails(ctx, collection, limit)
	if err != nil {
		log.Error("Failed to list records", logger.Error(err))
		os.Exit(1)
	}

	client := &http.Client{Timeout: downloadTimeout}
	downloaded := 0

	for i := range records {
		rec := &records[i]
		if rec.ThumbURL == "" {
			continue
		}

		name := thumbnailName(rec)
		path := filepath.Join(outDir, name)

		if err := download(ctx, client, rec.ThumbURL, path); err != nil {
			log.Warn("Thumbnail download failed",
				logger.String("record_id", rec.ID.Hex()),
				logger.String("thumb_url", rec.ThumbURL),
				logger.Error(err),
			)
			continue
		}

		log.Info("Thumbnail downloaded",
			logger.String("record_id", rec.ID.Hex()),
			logger.String("file", path),
		)
		downloaded++
	}

	fmt.Printf("Downloaded %d of %d thumbnails to %s\n", downloaded, len(records), outDir)
}

// thumbnailName derives the output filename, preferring the ingestion
// topic id over the store id.
func thumbnailName(rec *models.Record) string {
	if rec.TopicID != 0 {
		return strconv.FormatInt(rec.TopicID, 10) + "_thumb.jpg"
	}
	return rec.ID.Hex() + "_thumb.jpg"
}

// download fetches url and writes the body to path.
func download(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected http status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
