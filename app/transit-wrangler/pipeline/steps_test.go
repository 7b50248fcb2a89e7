package pipeline

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestKnownStep(t *testing.T) {
	is := is.New(t)
	for _, step := range []string{"clean", "expand", "aggregate", "report", "cleanClipper"} {
		is.True(KnownStep(step))
	}
	is.True(!KnownStep("publish"))
	is.True(!KnownStep(""))
}

func TestSortedMatches(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	for _, name := range []string{"b.stp", "a.stp", "notes.txt"} {
		is.NoErr(os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := sortedMatches(dir, "*.stp")
	is.NoErr(err)
	is.Equal(2, len(files))
	is.Equal("a.stp", filepath.Base(files[0]))
	is.Equal("b.stp", filepath.Base(files[1]))

	_, err = sortedMatches(dir, "*.zip")
	is.True(err != nil)
}

func TestFetchFeed(t *testing.T) {
	is := is.New(t)
	lastModified := time.Date(2013, 10, 1, 12, 0, 0, 0, time.UTC)
	var downloads int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", lastModified.Format(time.RFC1123))
		if r.Method == http.MethodGet {
			downloads++
			_, _ = io.WriteString(w, "feed contents")
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	p := &Pipeline{log: log.New(io.Discard, "", 0)}

	is.NoErr(p.fetchFeed(dir, server.URL))
	is.Equal(1, downloads)
	contents, err := os.ReadFile(filepath.Join(dir, "gtfs.zip"))
	is.NoErr(err)
	is.Equal("feed contents", string(contents))

	// the freshly written copy is newer than the remote timestamp
	is.NoErr(p.fetchFeed(dir, server.URL))
	is.Equal(1, downloads)
}
