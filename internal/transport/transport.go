// Package transport builds the HTTP client used for every upstream resource.
// Besides http and https it serves file:// URLs, so the manifest and the local
// route dataset can live either behind a web server or on disk.
package transport

import (
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
)

func NewClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}

// BaseURL turns a configured location into an absolute URL. Values without
// a scheme are treated as filesystem paths, relative to the working directory.
func BaseURL(location string) (string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") || strings.HasPrefix(location, "file://") {
		return strings.TrimRight(location, "/"), nil
	}

	abs, err := filepath.Abs(location)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return strings.TrimRight(u.String(), "/"), nil
}

// Join appends escaped path elements to a base URL.
func Join(base string, elems ...string) string {
	escaped := make([]string, len(elems))
	for i, e := range elems {
		escaped[i] = url.PathEscape(e)
	}
	return base + "/" + path.Join(escaped...)
}
