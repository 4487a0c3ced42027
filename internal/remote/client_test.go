package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `{
  "packages": [
    {"name": "calc", "version": "1.2.0", "language": "lua", "entry": "main.lua",
     "description": "Simple calculator", "download_url": "https://example.com/calc.clapp.zip", "author": "ayşe"},
    {"name": "hello", "version": "0.1.0", "language": "python", "entry": "main.py",
     "description": "Prints a greeting", "dependencies": ["python"], "download_url": "https://example.com/hello.clapp.zip"}
  ]
}`

func serveIndex(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func names(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestFetchIndex(t *testing.T) {
	srv := serveIndex(t, sampleIndex)
	c := NewClient(srv.URL, WithRetries(0))

	idx, err := c.FetchIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.Packages, 2)

	calc := idx.Packages[0]
	assert.Equal(t, "calc", calc.Name)
	assert.Equal(t, "ayşe", calc.Author)
	assert.Equal(t, []string{}, calc.Dependencies)
	assert.Equal(t, "https://example.com/calc.clapp.zip", calc.DownloadURL)
	assert.Equal(t, []string{"python"}, idx.Packages[1].Dependencies)
}

func TestSearchPackages(t *testing.T) {
	srv := serveIndex(t, sampleIndex)
	c := NewClient(srv.URL, WithRetries(0))
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"cal", []string{"calc"}},
		{"", []string{"calc", "hello"}},
		{"CALC", []string{"calc"}},
		{"python", []string{"hello"}},
		{"greeting", []string{"hello"}},
		{"zzz", []string{}},
		{" calc", []string{"calc"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, names(c.SearchPackages(ctx, tt.query)))
		})
	}
}

func TestSearchKeepsWhitespace(t *testing.T) {
	records := []Record{
		{Name: "calc", Description: "adder", Language: "lua"},
		{Name: "hello", Description: "Prints a greeting", Language: "python"},
	}
	assert.Equal(t, []string{"hello"}, names(Search(records, " ")))
	assert.Equal(t, []string{}, names(Search(records, " calc ")))
	assert.Equal(t, []string{"calc", "hello"}, names(Search(records, "")))
}

func TestGetPackageInfo(t *testing.T) {
	srv := serveIndex(t, sampleIndex)
	c := NewClient(srv.URL, WithRetries(0))

	rec, ok := c.GetPackageInfo(context.Background(), "hello")
	require.True(t, ok)
	assert.Equal(t, "0.1.0", rec.Version)
	assert.Equal(t, "hello", rec.Manifest().Name)

	_, ok = c.GetPackageInfo(context.Background(), "missing")
	assert.False(t, ok)
}

func TestReadFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"packages": [`))
		}},
		{"wrong shape", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"packages": "calc"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := NewClient(srv.URL, WithRetries(0))
			ctx := context.Background()

			_, err := c.FetchIndex(ctx)
			assert.Error(t, err)
			assert.Empty(t, c.ListRemotePackages(ctx))
			assert.Empty(t, c.SearchPackages(ctx, ""))
			_, ok := c.GetPackageInfo(ctx, "calc")
			assert.False(t, ok)
		})
	}
}

func TestFetchIndexHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(srv.URL, WithRetries(0)).FetchIndex(context.Background())
	var he *HTTPError
	require.True(t, errors.As(err, &he), "err = %v", err)
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
}

func TestFetchIndexSkipsInvalidRecords(t *testing.T) {
	srv := serveIndex(t, `{"packages": [
		{"name": "ok", "version": "1", "language": "python", "entry": "main.py"},
		{"name": "bad", "version": "1", "language": "ruby", "entry": "main.rb"},
		{"version": "1"},
		{"name": ".hidden", "version": "1", "language": "python", "entry": "main.py"},
		{"name": "   ", "version": "1", "language": "python", "entry": "main.py"},
		{"name": "blank", "version": " ", "language": "python", "entry": "main.py"},
		{"name": "noentry", "version": "1", "language": "lua", "entry": "\t"}
	]}`)

	idx, err := NewClient(srv.URL, WithRetries(0)).FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names(idx.Packages))
}

func TestFetchIndexResolvesRelativeDownloadURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repo/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"packages": [
			{"name": "rel", "version": "1", "language": "python", "entry": "main.py", "download_url": "dist/rel-1.clapp.zip"},
			{"name": "root", "version": "1", "language": "python", "entry": "main.py", "download_url": "/mirror/root-1.clapp.zip"},
			{"name": "abs", "version": "1", "language": "lua", "entry": "main.lua", "download_url": "https://cdn.example.com/abs.clapp.zip"},
			{"name": "none", "version": "1", "language": "lua", "entry": "main.lua"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	idx, err := NewClient(srv.URL+"/repo/index.json", WithRetries(0)).FetchIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.Packages, 4)

	assert.Equal(t, srv.URL+"/repo/dist/rel-1.clapp.zip", idx.Packages[0].DownloadURL)
	assert.Equal(t, srv.URL+"/mirror/root-1.clapp.zip", idx.Packages[1].DownloadURL)
	assert.Equal(t, "https://cdn.example.com/abs.clapp.zip", idx.Packages[2].DownloadURL)
	assert.Empty(t, idx.Packages[3].DownloadURL)
}

func TestFetchIndexRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(sampleIndex))
	}))
	defer srv.Close()

	idx, err := NewClient(srv.URL, WithRetries(1)).FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Len(t, idx.Packages, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchIndexTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, WithRetries(0), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.FetchIndex(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCheckConnectivity(t *testing.T) {
	srv := serveIndex(t, sampleIndex)
	assert.True(t, NewClient(srv.URL, WithRetries(0)).CheckConnectivity(context.Background()))

	down := httptest.NewServer(http.NotFoundHandler())
	defer down.Close()
	assert.False(t, NewClient(down.URL, WithRetries(0)).CheckConnectivity(context.Background()))

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	assert.False(t, NewClient(url, WithRetries(0)).CheckConnectivity(context.Background()))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pkg.clapp.zip" {
			w.Write([]byte("archive-bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, WithRetries(0))
	dir := t.TempDir()

	dest := filepath.Join(dir, "pkg.clapp.zip")
	require.NoError(t, c.Download(context.Background(), srv.URL+"/pkg.clapp.zip", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))

	missing := filepath.Join(dir, "missing.zip")
	err = c.Download(context.Background(), srv.URL+"/missing.zip", missing)
	var he *HTTPError
	require.True(t, errors.As(err, &he), "err = %v", err)
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "no file should be left for a failed download")
}

func TestDownloadCancelledMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	dest := filepath.Join(t.TempDir(), "pkg.zip")
	err := NewClient(srv.URL, WithRetries(0)).Download(ctx, srv.URL+"/pkg.zip", dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "partial download must be removed")
}
