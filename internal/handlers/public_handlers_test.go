package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-savings-platform/internal/models"
	"water-savings-platform/internal/services"
)

const wizardInputJSON = `{"capacity_kw": 500, "city_id": 1, "operating_hours_per_day": 24, "operating_days_per_week": 7}`

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestPublicHandler_Simulate(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.serve(jsonRequest("POST", "/api/simulations", wizardInputJSON))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var sim services.Simulation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sim))
	assert.Equal(t, 3, sim.Result.DryCooler.Modules)
	assert.Equal(t, "São Paulo", sim.City.Name)
	assert.Greater(t, sim.Result.Comparison.YearlyDifferenceLiters, 0.0)
	assert.Equal(t, 6.0, sim.Input.DeltaT)
}

func TestPublicHandler_SimulateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "zero capacity",
			body:      `{"capacity_kw": 0, "city_id": 1, "operating_hours_per_day": 8, "operating_days_per_week": 5}`,
			wantField: "capacity_kw",
		},
		{
			name:      "unknown city",
			body:      `{"capacity_kw": 100, "city_id": 999, "operating_hours_per_day": 8, "operating_days_per_week": 5}`,
			wantField: "city_id",
		},
		{
			name:      "hours out of range",
			body:      `{"capacity_kw": 100, "city_id": 1, "operating_hours_per_day": 25, "operating_days_per_week": 5}`,
			wantField: "operating_hours_per_day",
		},
		{
			name:      "both schedules",
			body:      `{"capacity_kw": 100, "city_id": 1, "operating_hours_per_day": 8, "operating_days_per_week": 5, "operating_days_per_year": 200}`,
			wantField: "operating_days_per_week",
		},
	}

	ts := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.serve(jsonRequest("POST", "/api/simulations", tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantField, decodeError(t, rec).Field)
		})
	}
}

func TestPublicHandler_SimulateRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	for name, body := range map[string]string{
		"empty":         "",
		"syntax":        `{"capacity_kw": `,
		"unknown field": `{"capacity_kw": 100, "colour": "blue"}`,
		"two objects":   wizardInputJSON + wizardInputJSON,
	} {
		t.Run(name, func(t *testing.T) {
			rec := ts.serve(jsonRequest("POST", "/api/simulations", body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPublicHandler_SimulateInactiveCity(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cities.cities[1].Active = false

	rec := ts.serve(jsonRequest("POST", "/api/simulations", wizardInputJSON))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "city_id", decodeError(t, rec).Field)
}

func TestPublicHandler_SubmitLead(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{
		"contact": {"name": " Ana Souza ", "email": "Ana@Example.com", "company": "Acme", "consent": true},
		"input": ` + wizardInputJSON + `
	}`
	rec := ts.serve(jsonRequest("POST", "/api/leads", body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var record models.LeadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "Ana Souza", record.Lead.Name)
	assert.Equal(t, "ana@example.com", record.Lead.Email)
	assert.Equal(t, int64(1), record.Lead.CityID)
	assert.Equal(t, "wizard", record.Lead.Source)
	require.NotNil(t, record.Simulation)
	assert.Equal(t, 3, record.Simulation.Modules)

	require.Len(t, ts.leads.leads, 1)
	assert.Equal(t, record.Lead.ID, ts.leads.leads[0].ID)
}

func TestPublicHandler_SubmitLeadValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name      string
		contact   string
		wantField string
	}{
		{"missing name", `{"email": "a@b.com", "consent": true}`, "name"},
		{"bad email", `{"name": "Ana", "email": "not-an-email", "consent": true}`, "email"},
		{"no consent", `{"name": "Ana", "email": "a@b.com"}`, "consent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"contact": ` + tt.contact + `, "input": ` + wizardInputJSON + `}`
			rec := ts.serve(jsonRequest("POST", "/api/leads", body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantField, decodeError(t, rec).Field)
		})
	}

	assert.Empty(t, ts.leads.leads)
}

func TestPublicHandler_ListCities(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cities.cities[2].Active = false

	rec := ts.serve(httptest.NewRequest("GET", "/api/cities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var options []CityOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	assert.Len(t, options, len(ts.cities.cities)-1)
	for _, o := range options {
		assert.NotEqual(t, int64(2), o.ID)
		assert.NotEmpty(t, o.Name)
	}
}

func TestPublicHandler_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts := newTestServer(t, stubHealth{})
		rec := ts.serve(httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("database down", func(t *testing.T) {
		ts := newTestServer(t, stubHealth{err: errors.New("connection refused")})
		rec := ts.serve(httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "unreachable", body["database"])
	})
}
