// Package httpclient provides the basic http functions used to fetch
// schedule feeds.
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// RemoteLastModified retrieves a url's Last-Modified timestamp with a HEAD
// request. Servers that send no usable header report the zero time, which
// callers treat as always newer.
func RemoteLastModified(url string) (time.Time, error) {
	resp, err := http.Head(url)
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("HEAD %s returned status %s", url, resp.Status)
	}

	lastModified := resp.Header.Get("Last-Modified")
	if len(lastModified) == 0 {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC1123, lastModified)
	if err != nil {
		return time.Time{}, nil
	}
	return parsed, nil
}

// DownloadRemoteFile retrieves a file from a url to a local file destination,
// returning the number of bytes written.
func DownloadRemoteFile(destinationFileName string, url string) (int64, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s returned status %s", url, resp.Status)
	}

	out, err := os.Create(destinationFileName)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = out.Close()
	}()

	return io.Copy(out, resp.Body)
}
