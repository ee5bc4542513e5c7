package duplicates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store/memory"
)

type fixture struct {
	e     *echo.Echo
	store *memory.Store
	a, b  *models.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	st := memory.New()

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := st.AddProvider(&models.Provider{
		ProviderFields: models.ProviderFields{Name: "Limpezas Sol", Email: models.StringPtr("geral@sol.pt"), Services: []string{"cleaning"}},
		CreatedAt:      t0,
	})
	b := st.AddProvider(&models.Provider{
		ProviderFields: models.ProviderFields{Name: "Sol Limpezas", Email: models.StringPtr(" GERAL@sol.pt"), Services: []string{"ironing"}},
		CreatedAt:      t0.Add(time.Hour),
	})
	st.AddDependent(models.DependentNotes, b.ID)

	scanner := matching.NewScanner(logger, st, matching.DefaultConfig(), nil)
	engine := merging.NewEngine(logger, st, nil, nil, merging.DefaultEngineConfig())
	quick := merging.NewQuickMerger(logger, scanner, engine)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	NewHandler(scanner, quick, engine, st, logger).Register(e.Group("/api/v1"))

	return &fixture{e: e, store: st, a: a, b: b}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(middleware.HeaderUserID, "operator-1")
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func mergeBody(t *testing.T, a, b string, resolutions models.ResolutionMap) string {
	t.Helper()
	data, err := json.Marshal(models.MergeRequest{ProviderAID: a, ProviderBID: b, Resolutions: resolutions})
	require.NoError(t, err)
	return string(data)
}

func TestScan(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/duplicates/scan", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.ScannedProviders)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, models.MatchTypeEmail, result.Groups[0].MatchType)
	assert.Equal(t, "geral@sol.pt", result.Groups[0].MatchValue)
	assert.Equal(t, 1, result.TotalDuplicates)
}

func TestQuickMerge(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/duplicates/quick-merge", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.QuickMergeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MergedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, 1, f.store.ProviderCount())
	assert.Len(t, f.store.DependentIDs(models.DependentNotes, f.a.ID), 1)
}

type unavailableScanner struct{}

func (unavailableScanner) Scan(context.Context) (*models.ScanResult, error) {
	return nil, errs.Persistence("failed to list providers")
}

func TestQuickMerge_ScanFailure(t *testing.T) {
	f := newFixture(t)
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := merging.NewEngine(logger, f.store, nil, nil, merging.DefaultEngineConfig())

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	NewHandler(unavailableScanner{}, merging.NewQuickMerger(logger, unavailableScanner{}, engine), engine, f.store, logger).
		Register(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/quick-merge", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var result models.QuickMergeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Zero(t, result.MergedCount)
	assert.Zero(t, result.FailedCount)
	assert.Contains(t, result.Error, "failed to list providers")
	assert.Equal(t, 2, f.store.ProviderCount())
}

func TestListMerges_AfterQuickMerge(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/duplicates/quick-merge", "")
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name string
		path string
	}{
		{name: "by survivor", path: "/api/v1/merges?provider_id=" + f.a.ID},
		{name: "by merged provider", path: "/api/v1/merges?provider_id=" + f.b.ID},
		{name: "unfiltered", path: "/api/v1/merges"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var list MergeListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			require.Equal(t, 1, list.Count)
			require.Len(t, list.Items, 1)
			assert.Equal(t, f.a.ID, list.Items[0].SurvivorID)
			assert.Equal(t, f.b.ID, list.Items[0].MergedID)
			assert.Equal(t, models.MergeModeQuickEmail, list.Items[0].Mode)
		})
	}
}

func TestMergePreview(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "ok", path: "/api/v1/providers/merge-preview?provider_a_id=" + f.a.ID + "&provider_b_id=" + f.b.ID, code: http.StatusOK},
		{name: "missing id", path: "/api/v1/providers/merge-preview?provider_a_id=" + f.a.ID, code: http.StatusBadRequest},
		{name: "same id", path: "/api/v1/providers/merge-preview?provider_a_id=" + f.a.ID + "&provider_b_id=" + f.a.ID, code: http.StatusBadRequest},
		{name: "unknown id", path: "/api/v1/providers/merge-preview?provider_a_id=" + f.a.ID + "&provider_b_id=0b8e8c2a-3f4d-4c6e-9a1b-2c3d4e5f6a7b", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.path, "")
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := f.do(http.MethodGet, tests[0].path, "")
	var preview models.MergePreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, f.a.ID, preview.ProviderA.ID)
	assert.Equal(t, 1, preview.ProviderB.Counts.Notes)
}

func TestMerge(t *testing.T) {
	f := newFixture(t)

	resolutions := models.DefaultResolution()
	resolutions[models.FieldName] = models.ChoiceB

	rec := f.do(http.MethodPost, "/api/v1/providers/merge", mergeBody(t, f.a.ID, f.b.ID, resolutions))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.MergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	assert.Equal(t, f.a.ID, resp.Outcome.SurvivorID)
	assert.Equal(t, "Sol Limpezas", resp.Outcome.Survivor.Name)
	assert.Equal(t, []string{"cleaning", "ironing"}, resp.Outcome.Survivor.Services)
	assert.Equal(t, 1, resp.Outcome.Reparented.Notes)

	rec = f.do(http.MethodGet, "/api/v1/merges?provider_id="+f.b.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list MergeListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	require.NotNil(t, list.Items[0].PerformedBy)
	assert.Equal(t, "operator-1", *list.Items[0].PerformedBy)
}

func TestMerge_Failures(t *testing.T) {
	f := newFixture(t)

	illegal := models.DefaultResolution()
	illegal[models.FieldEmail] = models.ChoiceUnion

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed body", body: `{"provider_a_id":`, code: http.StatusBadRequest},
		{name: "missing ids", body: `{"resolutions":{}}`, code: http.StatusBadRequest},
		{name: "merge on scalar field", body: mergeBody(t, f.a.ID, f.b.ID, illegal), code: http.StatusBadRequest},
		{name: "same provider", body: mergeBody(t, f.a.ID, f.a.ID, models.DefaultResolution()), code: http.StatusBadRequest},
		{name: "unknown provider", body: mergeBody(t, f.a.ID, "0b8e8c2a-3f4d-4c6e-9a1b-2c3d4e5f6a7b", models.DefaultResolution()), code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/providers/merge", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, 2, f.store.ProviderCount())
}

func TestListMerges_RejectsBadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/merges?provider_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/merges", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list MergeListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)
}
