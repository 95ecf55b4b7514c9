package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsthreader/internal/api"
	"github.com/jonesrussell/newsthreader/internal/database"
	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/logger"
)

type fakeDomainReader struct {
	stats       map[string]*domain.DomainStat
	allowlisted map[string]bool
}

func (f *fakeDomainReader) ListAll(_ context.Context) ([]*domain.DomainStat, error) {
	var all []*domain.DomainStat
	for _, s := range f.stats {
		all = append(all, s)
	}
	return all, nil
}

func (f *fakeDomainReader) ListByStatus(_ context.Context, status string) ([]*domain.DomainStat, error) {
	var matched []*domain.DomainStat
	for _, s := range f.stats {
		if s.Status == status {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func (f *fakeDomainReader) Get(_ context.Context, dom string) (*domain.DomainStat, error) {
	if s, ok := f.stats[dom]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeDomainReader) SetAllowlisted(_ context.Context, dom string, allowlisted bool) error {
	f.allowlisted[dom] = allowlisted
	return nil
}

type fakeThreadReader struct {
	threads map[string]*domain.StoryThread
}

func (f *fakeThreadReader) ListAll(_ context.Context) ([]*domain.StoryThread, error) {
	var all []*domain.StoryThread
	for _, t := range f.threads {
		all = append(all, t)
	}
	return all, nil
}

func (f *fakeThreadReader) Get(_ context.Context, id string) (*domain.StoryThread, error) {
	if t, ok := f.threads[id]; ok {
		return t, nil
	}
	return nil, errors.New("not found")
}

type fakeArticleReader struct {
	byThread map[string][]domain.Article
}

func (f *fakeArticleReader) ListByThread(_ context.Context, threadID string) ([]domain.Article, error) {
	return f.byThread[threadID], nil
}

type fakeRunReader struct {
	report *domain.RunReport
}

func (f *fakeRunReader) Latest(_ context.Context) (*domain.RunReport, error) {
	if f.report == nil {
		return nil, database.ErrNoRunReport
	}
	return f.report, nil
}

type fixture struct {
	domains  *fakeDomainReader
	threads  *fakeThreadReader
	articles *fakeArticleReader
	runs     *fakeRunReader
	router   *gin.Engine
}

func newFixture() *fixture {
	fx := &fixture{
		domains: &fakeDomainReader{
			stats:       map[string]*domain.DomainStat{},
			allowlisted: map[string]bool{},
		},
		threads:  &fakeThreadReader{threads: map[string]*domain.StoryThread{}},
		articles: &fakeArticleReader{byThread: map[string][]domain.Article{}},
		runs:     &fakeRunReader{},
	}
	handler := api.NewHandler(fx.domains, fx.threads, fx.articles, fx.runs, 0.277, logger.NewNoOp())
	fx.router = api.NewRouter(handler, nil, logger.NewNoOp(), false)
	return fx
}

func (fx *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	fx.router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthz(t *testing.T) {
	fx := newFixture()
	resp := fx.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestListDomains(t *testing.T) {
	fx := newFixture()
	fx.domains.stats["a.example"] = &domain.DomainStat{Domain: "a.example", Status: domain.DomainStatusActive}
	fx.domains.stats["b.example"] = &domain.DomainStat{Domain: "b.example", Status: domain.DomainStatusBlocked}

	resp := fx.do(t, http.MethodGet, "/api/v1/domains", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestListBlockedDomains(t *testing.T) {
	fx := newFixture()
	fx.domains.stats["a.example"] = &domain.DomainStat{Domain: "a.example", Status: domain.DomainStatusActive}
	fx.domains.stats["b.example"] = &domain.DomainStat{Domain: "b.example", Status: domain.DomainStatusBlocked}

	resp := fx.do(t, http.MethodGet, "/api/v1/domains/blocked", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Count   int                  `json:"count"`
		Domains []*domain.DomainStat `json:"domains"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "b.example", body.Domains[0].Domain)
}

func TestGetDomainNotFound(t *testing.T) {
	fx := newFixture()
	resp := fx.do(t, http.MethodGet, "/api/v1/domains/missing.example", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSetAllowlist(t *testing.T) {
	fx := newFixture()

	resp := fx.do(t, http.MethodPut, "/api/v1/domains/paywalled.example/allowlist", `{"allowlisted": true}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, fx.domains.allowlisted["paywalled.example"])

	resp = fx.do(t, http.MethodPut, "/api/v1/domains/paywalled.example/allowlist", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListThreadsRankedByHeat(t *testing.T) {
	fx := newFixture()
	now := time.Now()

	fx.threads.threads["stale"] = &domain.StoryThread{ID: "stale", Title: "Old story", Active: true}
	fx.threads.threads["hot"] = &domain.StoryThread{ID: "hot", Title: "Breaking story", Active: true}
	fx.articles.byThread["stale"] = []domain.Article{
		{ImportanceWeight: 1, PublishedAt: now.AddDate(0, 0, -10)},
	}
	fx.articles.byThread["hot"] = []domain.Article{
		{ImportanceWeight: 1, PublishedAt: now.Add(-time.Hour)},
		{ImportanceWeight: 1, PublishedAt: now.Add(-3 * time.Hour)},
	}

	resp := fx.do(t, http.MethodGet, "/api/v1/threads", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Threads []struct {
			ID   string  `json:"id"`
			Heat float64 `json:"heat"`
		} `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Threads, 2)
	assert.Equal(t, "hot", body.Threads[0].ID)
	assert.Greater(t, body.Threads[0].Heat, body.Threads[1].Heat)
}

func TestGetThread(t *testing.T) {
	fx := newFixture()
	fx.threads.threads["t1"] = &domain.StoryThread{ID: "t1", Title: "Quake coverage", Active: true}
	fx.articles.byThread["t1"] = []domain.Article{
		{ID: "a1", Title: "Quake hits", ImportanceWeight: 1, PublishedAt: time.Now()},
	}

	resp := fx.do(t, http.MethodGet, "/api/v1/threads/t1", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Heat     float64          `json:"heat"`
		Articles []domain.Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Greater(t, body.Heat, 0.9)
	require.Len(t, body.Articles, 1)
}

func TestLatestRun(t *testing.T) {
	fx := newFixture()

	resp := fx.do(t, http.MethodGet, "/api/v1/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	fx.runs.report = &domain.RunReport{ID: "r1", SeedsProcessed: 5, SeedsAccepted: 3}
	resp = fx.do(t, http.MethodGet, "/api/v1/runs/latest", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.Equal(t, "r1", report.ID)
	assert.Equal(t, 3, report.SeedsAccepted)
}
