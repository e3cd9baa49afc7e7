package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/lawparse/internal/catalog"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/store"
)

const statuteText = `中华人民共和国测试法
（2021年6月10日第十三届全国人民代表大会常务委员会第二十九次会议通过）
第一章　总　则
第一条　为了测试，制定本法。
第二条　本法适用于测试。
第二章　附　则
第三条　本法自2021年9月1日起施行。
`

type memStore struct {
	mu      sync.Mutex
	records map[string]*model.Record
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*model.Record{}}
}

func (s *memStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[collection+"/"+id]
	return ok, nil
}

func (s *memStore) Save(ctx context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := store.CollectionFor(rec.Level) + "/" + rec.ID
	if _, ok := s.records[key]; ok {
		return store.ErrExists
	}
	s.records[key] = rec
	return nil
}

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.HTTP.RespectRobots = false
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseItem_TextSource(t *testing.T) {
	cfg := testConfig(t)
	st := newMemStore()
	p, err := New(cfg, WithStore(st))
	require.NoError(t, err)

	item := catalog.Item{
		ID:       "law-1",
		Title:    "中华人民共和国测试法",
		Level:    "法律",
		Publish:  "2021-06-10",
		Category: "行政法",
		Files:    []catalog.File{{Type: catalog.TypeText, Path: writeSource(t, "law.txt", statuteText)}},
	}

	rec, err := p.ParseItem(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "law-1", rec.ID)
	assert.Equal(t, "中华人民共和国测试法", rec.Title)
	assert.Equal(t, "2021-06-10", rec.PublishDate)
	assert.Equal(t, []string{"2021年6月10日 第十三届全国人民代表大会常务委员会第二十九次会议通过"}, rec.Header)
	require.Len(t, rec.Structure, 2)
	assert.Equal(t, "第一章 总 则", rec.Structure[0].Title)
	assert.Equal(t, 3, rec.ArticleCount())

	md := filepath.Join(cfg.Output.Dir, "法律", "行政法", "测试法(2021-06-10).md")
	assert.FileExists(t, md)
	assert.FileExists(t, strings.TrimSuffix(md, ".md")+".json")

	ok, err := st.Exists(context.Background(), store.Laws, "law-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.ParseItem(context.Background(), item)
	assert.ErrorIs(t, err, ErrSkipped)
}

func TestParseItem_FallsBackToNextFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.JSON = false
	cfg.Output.Markdown = false
	p, err := New(cfg)
	require.NoError(t, err)

	item := catalog.Item{
		Title: "中华人民共和国测试法",
		Files: []catalog.File{
			{Type: catalog.TypeHTML, Path: filepath.Join(t.TempDir(), "missing.html")},
			{Type: catalog.TypeText, Path: writeSource(t, "law.txt", statuteText)},
		},
	}

	rec, err := p.ParseItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, NewID("中华人民共和国测试法", ""), rec.ID)
	assert.Equal(t, 3, rec.ArticleCount())
}

func TestParseItem_AllFilesFail(t *testing.T) {
	p, err := New(testConfig(t))
	require.NoError(t, err)

	item := catalog.Item{
		Title: "空法",
		Files: []catalog.File{{Type: catalog.TypeText, Path: writeSource(t, "empty.txt", "\n\n")}},
	}
	_, err = p.ParseItem(context.Background(), item)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSkipped))

	_, err = p.ParseItem(context.Background(), catalog.Item{Title: "无文件"})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestParseItem_HTMLOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>中华人民共和国测试法</title></head><body>
<div class="law-content">
<p>中华人民共和国测试法</p>
<p>（2021年6月10日第十三届全国人民代表大会常务委员会第二十九次会议通过）</p>
<p>第一条&nbsp;为了测试，制定本法。</p>
<p>第二条 本法自公布之日起施行。</p>
</div></body></html>`)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Output.JSON = false
	cfg.Output.Markdown = false
	m := metrics.New()
	p, err := New(cfg, WithMetrics(m))
	require.NoError(t, err)

	rec, err := p.ParseItem(context.Background(), catalog.Item{
		ID:    "html-1",
		Title: "中华人民共和国测试法",
		Files: []catalog.File{{Type: catalog.TypeHTML, URL: server.URL + "/law.html"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ArticleCount())
	assert.Equal(t, "为了测试，制定本法。", rec.Structure[0].Sections[0].Articles[0].Context)
	assert.Len(t, rec.Header, 1)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `lawparse_parse_documents_total{outcome="parsed"} 1`)
	assert.Contains(t, rr.Body.String(), `lawparse_fetch_sources_total{origin="network"} 1`)
}

func TestParseSource_TitleFromDocument(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)

	rec, err := p.ParseSource(context.Background(), writeSource(t, "law.txt", statuteText), model.Metadata{Publish: "2021-06-10 00:00:00"})
	require.NoError(t, err)

	assert.Equal(t, "中华人民共和国测试法", rec.Title)
	assert.Equal(t, "2021-06-10", rec.PublishDate)
	assert.Equal(t, NewID("中华人民共和国测试法", "2021-06-10"), rec.ID)
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "测试法(2021-06-10).md"))
}

func TestParseItem_WithSQLiteStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "lawdb.sqlite"), nil)
	require.NoError(t, err)
	defer st.Close()

	cfg := testConfig(t)
	p, err := New(cfg, WithStore(st))
	require.NoError(t, err)

	item := catalog.Item{
		ID:    "c1",
		Title: "中华人民共和国测试法",
		Level: store.ConstitutionLevel,
		Files: []catalog.File{{Type: catalog.TypeText, Path: writeSource(t, "law.txt", statuteText)}},
	}
	_, err = p.ParseItem(context.Background(), item)
	require.NoError(t, err)

	got, err := st.Get(context.Background(), store.Constitutions, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ArticleCount())

	_, err = p.ParseItem(context.Background(), item)
	assert.ErrorIs(t, err, ErrSkipped)
}

func TestNewID_Stable(t *testing.T) {
	assert.Equal(t, NewID("某法", "2020-01-01"), NewID(" 某法 ", "2020-01-01"))
	assert.NotEqual(t, NewID("某法", "2020-01-01"), NewID("某法", "2021-01-01"))
}

func TestNew_InvalidPatterns(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Patterns.Ordinal = "["
	_, err := New(cfg)
	assert.Error(t, err)
}
