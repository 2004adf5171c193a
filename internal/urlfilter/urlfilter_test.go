package urlfilter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example42/saigen/internal/saidata"
	"github.com/stretchr/testify/assert"
)

func TestFilter_RemovesUnreachableURLs(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	doc := &saidata.Document{
		Metadata: saidata.Metadata{
			URLs: map[string]string{
				saidata.URLWebsite: ok.URL,
				saidata.URLIssues:  dead.URL,
			},
		},
	}

	f := New(Options{})
	out, warning := f.Run(context.Background(), doc)

	assert.Empty(t, warning)
	assert.Equal(t, ok.URL, out.Metadata.URLs[saidata.URLWebsite])
	_, hasIssues := out.Metadata.URLs[saidata.URLIssues]
	assert.False(t, hasIssues)
}

func TestFilter_FallsBackToGETOn405(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	doc := &saidata.Document{Metadata: saidata.Metadata{URLs: map[string]string{saidata.URLWebsite: srv.URL}}}
	f := New(Options{})
	out, _ := f.Run(context.Background(), doc)
	assert.Equal(t, srv.URL, out.Metadata.URLs[saidata.URLWebsite])
}

// Templated URLs are never touched, even if unreachable.
func TestFilter_SkipsTemplatedURLs(t *testing.T) {
	doc := &saidata.Document{
		Metadata: saidata.Metadata{
			URLs: map[string]string{
				saidata.URLDownload: "https://example.com/{{version}}/app-{{platform}}.tar.gz",
			},
		},
	}
	f := New(Options{})
	out, _ := f.Run(context.Background(), doc)
	assert.Equal(t, "https://example.com/{{version}}/app-{{platform}}.tar.gz", out.Metadata.URLs[saidata.URLDownload])
}

func TestFilter_EmptyMapLeftAsEmptyMapping(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer dead.Close()

	doc := &saidata.Document{Metadata: saidata.Metadata{URLs: map[string]string{saidata.URLWebsite: dead.URL}}}
	f := New(Options{})
	out, _ := f.Run(context.Background(), doc)
	assert.NotNil(t, out.Metadata.URLs)
	assert.Empty(t, out.Metadata.URLs)
}
