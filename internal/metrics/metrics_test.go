package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveDocument(t *testing.T) {
	r := New()
	r.ObserveDocument(OutcomeParsed, 12, 20*time.Millisecond)
	r.ObserveDocument(OutcomeParsed, 3, 10*time.Millisecond)
	r.ObserveDocument(OutcomeFailed, 99, time.Second)
	r.ObserveFetch(OriginCache)

	body := scrape(t, r)
	assert.Contains(t, body, `lawparse_parse_documents_total{outcome="parsed"} 2`)
	assert.Contains(t, body, `lawparse_parse_documents_total{outcome="failed"} 1`)
	assert.Contains(t, body, `lawparse_parse_articles_total 15`)
	assert.Contains(t, body, `lawparse_parse_duration_seconds_count 2`)
	assert.Contains(t, body, `lawparse_fetch_sources_total{origin="cache"} 1`)
}

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.ObserveDocument(OutcomeParsed, 1, time.Second)
	r.ObserveFetch(OriginFile)
	r.ObserveAPIEndpointDuration("parse", "POST", "200", 0.1)
	assert.NoError(t, r.WriteTextfile("/nonexistent/x.prom"))
	assert.Nil(t, r.Registry())
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveDocument(OutcomeSkipped, 0, 0)

	path := filepath.Join(t.TempDir(), "lawparse.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lawparse_parse_documents_total{outcome="skipped"} 1`)
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveFetch(OriginNetwork)

	assert.Contains(t, scrape(t, r), `lawparse_fetch_sources_total{origin="network"} 1`)
}
