package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewMux(rates.NewServiceWithStorage(rates.Config{}, storage.NewMemory())))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf strings.Builder
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func importTestdata(t *testing.T, srv *httptest.Server) rates.ImportResult {
	t.Helper()
	raw, err := os.ReadFile("../importer/testdata/plans.json")
	require.NoError(t, err)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/plans", "application/json", string(raw))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var res rates.ImportResult
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready", "/livez": "live"} {
		resp, body := do(t, http.MethodGet, srv.URL+path, "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/api/v1/plans", "", "")
	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "eratecompare_requests_total")
}

func TestPlanLifecycle(t *testing.T) {
	srv := newTestServer(t)
	res := importTestdata(t, srv)
	require.Len(t, res.Accepted, 2)
	id := res.Accepted[0].ID

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/plans", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []rates.PlanSummary
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/plans/"+id, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"Supplier":"Acme Energy"`)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/plans/"+id+"/validate", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Valid"`)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/v1/plans/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/plans/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportRejectsDuplicates(t *testing.T) {
	srv := newTestServer(t)
	importTestdata(t, srv)

	raw, err := os.ReadFile("../importer/testdata/plans.json")
	require.NoError(t, err)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/plans", "application/json", string(raw))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "NameInUse")

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/plans?replace=true", "application/json", string(raw))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestImportBadBody(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/plans", "application/json", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComparisonJSON(t *testing.T) {
	srv := newTestServer(t)
	importTestdata(t, srv)

	req := `{"scenario":{"id":"home"},"readings":[
		{"time":"2024-01-08T00:00:00Z","kwh":0.5,"direction":"import"},
		{"time":"2024-01-08T17:30:00Z","kwh":1.5,"direction":"import"}]}`
	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/costings", "application/json", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var res rates.ComparisonResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Costings, 2)
	assert.Equal(t, "home", res.Costings[0].Scenario)
	assert.Equal(t, 1, res.Costings[0].Rank)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/costings/"+res.RunID, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored []rates.CostingResult
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Len(t, stored, 2)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/costings/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComparisonCSV(t *testing.T) {
	srv := newTestServer(t)
	importTestdata(t, srv)

	raw, err := os.ReadFile("../importer/testdata/usage.csv")
	require.NoError(t, err)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/costings?scenario=csv&inverter=true", "text/csv", string(raw))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var res rates.ComparisonResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Scenario.HasInverter)
	assert.Len(t, res.Costings, 2)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/costings?inverter=maybe", "text/csv", string(raw))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComparisonWithoutReadings(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/costings", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidationCodes(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/validation-codes", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var codes []rates.Validation
	require.NoError(t, json.Unmarshal(body, &codes))
	require.Len(t, codes, 10)
	assert.Equal(t, "Valid", codes[0].Name)
	assert.Equal(t, "NameInUse", codes[9].Name)
}
