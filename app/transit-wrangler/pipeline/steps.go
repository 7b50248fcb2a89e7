// Package pipeline orchestrates the batch steps of the wrangler: cleaning
// raw sensor files, expanding schedule feeds, joining and aggregating, and
// reporting on the resulting tables.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sfcta/transit-wrangler/business/data/apc"
	"github.com/sfcta/transit-wrangler/business/data/clipper"
	"github.com/sfcta/transit-wrangler/business/data/gtfsfeed"
	"github.com/sfcta/transit-wrangler/business/data/join"
	"github.com/sfcta/transit-wrangler/business/data/rollup"
	"github.com/sfcta/transit-wrangler/business/data/schedule"
	"github.com/sfcta/transit-wrangler/business/data/store"
	"github.com/sfcta/transit-wrangler/foundation/geo"
	"github.com/sfcta/transit-wrangler/foundation/httpclient"
)

// Inputs names the locations each step reads from. FeedURL, when set, has the
// expand step refresh the feed directory from a remote zip first.
type Inputs struct {
	RawDir     string
	FeedDir    string
	FeedURL    string
	ClipperDir string
}

// Pipeline holds everything the steps share: the store and the step-results
// publisher.
type Pipeline struct {
	log       *log.Logger
	store     *store.Store
	publisher *resultsPublisher
}

// NewPipeline creates a Pipeline over an open database. natsURL enables the
// step-results publisher when non-empty.
func NewPipeline(log *log.Logger, db *sqlx.DB, natsURL string) (*Pipeline, error) {
	publisher, err := makeResultsPublisher(log, natsURL)
	if err != nil {
		return nil, fmt.Errorf("connecting step publisher: %w", err)
	}
	return &Pipeline{
		log:       log,
		store:     store.NewStore(log, db),
		publisher: publisher,
	}, nil
}

// Close releases the pipeline's connections.
func (p *Pipeline) Close() {
	p.publisher.close()
}

// KnownStep reports whether step names one of the pipeline's steps.
func KnownStep(step string) bool {
	switch step {
	case "clean", "expand", "aggregate", "report", "cleanClipper":
		return true
	}
	return false
}

// Run executes one named step. Unknown steps are an error.
func (p *Pipeline) Run(step string, in Inputs) error {
	start := time.Now()
	var read, written int64
	var err error

	switch step {
	case "clean":
		read, written, err = p.clean(in.RawDir)
	case "expand":
		read, written, err = p.expand(in.FeedDir, in.FeedURL)
	case "aggregate":
		written, err = p.aggregate()
	case "report":
		err = p.report()
	case "cleanClipper":
		read, written, err = p.cleanClipper(in.ClipperDir)
	default:
		return fmt.Errorf("unknown step %q", step)
	}
	if err != nil {
		return fmt.Errorf("step %s: %w", step, err)
	}

	p.publisher.publish(StepResult{
		Step:           step,
		RowsRead:       read,
		RowsWritten:    written,
		ElapsedSeconds: time.Since(start).Seconds(),
		CompletedAt:    time.Now(),
	})
	return nil
}

// sortedMatches globs a directory for files and returns them in name order so
// re-runs process input deterministically.
func sortedMatches(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", pattern, dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// clean rebuilds the cleaned trip-stop table from every raw STP file in
// rawDir.
func (p *Pipeline) clean(rawDir string) (int64, int64, error) {
	files, err := sortedMatches(rawDir, "*.stp")
	if err != nil {
		return 0, 0, err
	}
	if err := p.store.RemoveIfExists(apc.TableName); err != nil {
		return 0, 0, err
	}

	cleaner := apc.NewCleaner(p.log, p.store)
	var read, written int64
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return read, written, err
		}
		r, w, err := cleaner.ProcessFile(f, filepath.Base(path))
		_ = f.Close()
		if err != nil {
			return read, written, err
		}
		read += int64(r)
		written += int64(w)
	}
	return read, written, nil
}

// fetchFeed downloads a schedule feed zip into feedDir, skipping the download
// when the local copy is already newer than the remote file.
func (p *Pipeline) fetchFeed(feedDir, feedURL string) error {
	destination := filepath.Join(feedDir, "gtfs.zip")

	remoteModified, err := httpclient.RemoteLastModified(feedURL)
	if err != nil {
		return fmt.Errorf("checking feed at %s: %w", feedURL, err)
	}
	if info, err := os.Stat(destination); err == nil && !remoteModified.IsZero() &&
		info.ModTime().After(remoteModified) {
		p.log.Printf("expand: %s is current, skipping download", destination)
		return nil
	}

	size, err := httpclient.DownloadRemoteFile(destination, feedURL)
	if err != nil {
		return fmt.Errorf("downloading feed from %s: %w", feedURL, err)
	}
	p.log.Printf("expand: downloaded %s, %d bytes", destination, size)
	return nil
}

// expand rebuilds the scheduled trip-stop table from every GTFS zip in
// feedDir, indexing records contiguously across feeds.
func (p *Pipeline) expand(feedDir, feedURL string) (int64, int64, error) {
	if feedURL != "" {
		if err := p.fetchFeed(feedDir, feedURL); err != nil {
			return 0, 0, err
		}
	}

	files, err := sortedMatches(feedDir, "*.zip")
	if err != nil {
		return 0, 0, err
	}
	if err := p.store.RemoveIfExists(schedule.TableName); err != nil {
		return 0, 0, err
	}

	expander := schedule.NewExpander(p.log, geo.NewCaliforniaZone3Projector())
	var written int64
	for _, path := range files {
		feed, err := gtfsfeed.LoadZip(p.log, path)
		if err != nil {
			return 0, written, err
		}
		records, err := expander.Expand(feed, written)
		if err != nil {
			return 0, written, fmt.Errorf("expanding %s: %w", filepath.Base(path), err)
		}
		rows := make([]map[string]interface{}, len(records))
		for i, record := range records {
			rows[i] = record.Row()
		}
		if err := p.store.Append(schedule.TableName, schedule.Schema, rows); err != nil {
			return 0, written, err
		}
		written += int64(len(rows))
		p.log.Printf("expand: %s wrote %d rows", filepath.Base(path), len(rows))
	}
	return written, written, nil
}

// aggregate joins observations against the schedule and rebuilds every
// rollup level.
func (p *Pipeline) aggregate() (int64, error) {
	joined, err := join.NewJoiner(p.log, p.store).Run()
	if err != nil {
		return 0, err
	}
	reduced, err := rollup.NewRollup(p.log, p.store).Run()
	if err != nil {
		return joined, err
	}
	return joined + reduced, nil
}

// report logs the row counts of every pipeline table and the monthly system
// boardings.
func (p *Pipeline) report() error {
	tables := []string{apc.TableName, schedule.TableName, join.TableName, clipper.TableName}
	tables = append(tables, rollup.TableNames()...)
	for _, table := range tables {
		count, err := p.store.Count(table)
		if err != nil {
			p.log.Printf("report: %s: not built", table)
			continue
		}
		p.log.Printf("report: %s: %d rows", table, count)
	}

	rows, err := p.store.SelectAll("system_totals")
	if err != nil {
		return nil
	}
	for _, row := range rows {
		p.log.Printf("report: %v dow %d boardings %.0f",
			store.Time(row, "month").Format("2006-01"),
			store.Int64(row, "dow"),
			store.Float64(row, "ons"))
	}
	return nil
}

// cleanClipper rebuilds the smartcard transaction table from every export in
// clipperDir.
func (p *Pipeline) cleanClipper(clipperDir string) (int64, int64, error) {
	files, err := sortedMatches(clipperDir, "*.csv")
	if err != nil {
		return 0, 0, err
	}
	if err := p.store.RemoveIfExists(clipper.TableName); err != nil {
		return 0, 0, err
	}

	cleaner := clipper.NewCleaner(p.log, p.store)
	var read, written int64
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return read, written, err
		}
		r, w, err := cleaner.ProcessFile(f, filepath.Base(path))
		_ = f.Close()
		if err != nil {
			return read, written, err
		}
		read += int64(r)
		written += int64(w)
	}
	return read, written, nil
}
