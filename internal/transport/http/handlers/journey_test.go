package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptotracker/internal/app/server"
	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig() config.Config {
	return config.Config{
		Addr:              ":0",
		StoreDriver:       config.StoreDriverMemory,
		JWTSecret:         "journey-secret",
		Environment:       "test",
		RunSeed:           true,
		SeedAdminEmail:    "admin@example.com",
		SeedAdminPassword: "Admin123!",
		MaxBodyBytes:      1 << 20,
		MetricsEnabled:    true,
		EmailFrom:         "pto@example.com",
		CallOutTimezone:   "UTC",
		DefaultPTOHours:   60,
		DefaultSickHours:  60,
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	app, err := server.New(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

func TestRequestLifecycleJourney(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")

	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/requests", "", nil, http.StatusUnauthorized)

	created := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "jordan.lee@example.com",
		"startDate":     "2025-03-03",
		"endDate":       "2025-03-05",
		"type":          "vacation",
		"reason":        "Family trip",
	}, http.StatusCreated)
	req := decode[map[string]any](t, created.Data)
	requestID := req["id"].(string)
	assert.Equal(t, "pending", req["status"])
	assert.Equal(t, 22.5, req["durationHours"])
	assert.Equal(t, staff.TeamAdmin, req["managerTeam"])

	approved := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/approve", token, nil, http.StatusOK).Data)
	assert.Equal(t, "in_progress", approved["status"])

	again := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/approve", token, nil, http.StatusConflict)
	require.NotNil(t, again.Error)
	assert.Equal(t, "invalid_transition", again.Error.Code)

	detail := decode[struct {
		Request map[string]any `json:"request"`
		Balance struct {
			PTOHours float64 `json:"ptoHours"`
		} `json:"balance"`
		Breakdown struct {
			BusinessDays int `json:"businessDays"`
		} `json:"breakdown"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/requests/"+requestID, token, nil, http.StatusOK).Data)
	assert.Equal(t, 37.5, detail.Balance.PTOHours)
	assert.Equal(t, 3, detail.Breakdown.BusinessDays)

	partial := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/checklist", token, map[string]any{
		"timekeepingEntered": true,
	}, http.StatusOK).Data)
	assert.Equal(t, "in_progress", partial["status"])

	done := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/checklist", token, map[string]any{
		"coverageArranged": true,
	}, http.StatusOK).Data)
	assert.Equal(t, "approved", done["status"])

	swept := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/sweep", token, map[string]any{
		"asOf": "2025-03-10",
	}, http.StatusOK).Data)
	assert.Equal(t, float64(1), swept["completed"])

	final := decode[struct {
		Request map[string]any `json:"request"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/requests/"+requestID, token, nil, http.StatusOK).Data)
	assert.Equal(t, "completed", final.Request["status"])

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/checklist", token, map[string]any{
		"coverageArranged": false,
	}, http.StatusConflict)

	trail := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/audit/events?action=request.approve", token, nil, http.StatusOK).Data)
	require.Len(t, trail, 1)
	assert.Equal(t, requestID, trail[0]["entityId"])
}

func TestSubmitValidation(t *testing.T) {
	_, ts := startApp(t)
	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "jordan.lee@example.com",
		"startDate":     "2025-03-05",
		"endDate":       "2025-03-03",
		"partialDay":    true,
		"startTime":     "9am",
	}, http.StatusBadRequest)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)

	resp = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "nobody@example.com",
		"startDate":     "2025-03-03",
		"endDate":       "2025-03-03",
	}, http.StatusNotFound)
	assert.Equal(t, "employee_not_found", resp.Error.Code)
}

func TestDenyLeavesBalanceAlone(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")

	created := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "casey.ortiz@example.com",
		"startDate":     "2025-04-07",
		"endDate":       "2025-04-07",
		"partialDay":    true,
		"startTime":     "09:00",
		"endTime":       "11:30",
	}, http.StatusCreated).Data)
	assert.Equal(t, 2.5, created["durationHours"])
	requestID := created["id"].(string)

	denied := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/deny", token, map[string]any{
		"reason": "  Coverage gap  ",
	}, http.StatusOK).Data)
	assert.Equal(t, "denied", denied["status"])
	assert.Equal(t, "Coverage gap", denied["denialReason"])

	employee := decode[map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+created["employeeId"].(string), token, nil, http.StatusOK).Data)
	balance := employee["balance"].(map[string]any)
	assert.Equal(t, float64(60), balance["ptoHours"])
}

func TestCallOutJourney(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")

	unknown := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/callouts", "", map[string]any{
		"phone":   "555-999-0000",
		"message": "sick",
	}, http.StatusNotFound)
	assert.Equal(t, "unknown_caller", unknown.Error.Code)

	recorded := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/callouts", "", map[string]any{
		"phone":   "+1 (555) 010-1003",
		"message": "Calling out - fever",
	}, http.StatusCreated).Data)
	requestID := recorded["requestId"].(string)
	assert.Equal(t, "Morgan Diaz", recorded["employeeName"])

	detail := decode[struct {
		Request map[string]any `json:"request"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/requests/"+requestID, token, nil, http.StatusOK).Data)
	assert.Equal(t, "approved", detail.Request["status"])
	assert.Equal(t, true, detail.Request["isCallOut"])
	assert.Equal(t, "Call-out via SMS: fever", detail.Request["reason"])
	assert.Equal(t, staff.TeamClinical, detail.Request["managerTeam"])

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+requestID+"/approve", token, nil, http.StatusConflict)
}

func TestManagerScope(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	_, err := app.Managers.EnsureManager(context.Background(), auth.Manager{
		Name:  "Clinical Lead",
		Email: "clinical@example.com",
		Role:  staff.RoleClinical,
		Team:  staff.TeamClinical,
	}, "Clinical123!")
	require.NoError(t, err)
	token := login(t, client, ts.URL, "clinical@example.com", "Clinical123!")

	adminReq := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "jordan.lee@example.com",
		"startDate":     "2025-05-05",
		"endDate":       "2025-05-05",
	}, http.StatusCreated).Data)
	clinicalReq := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "morgan.diaz@example.com",
		"startDate":     "2025-05-05",
		"endDate":       "2025-05-06",
	}, http.StatusCreated).Data)

	list := decode[struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/requests?status=pending", token, nil, http.StatusOK).Data)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, clinicalReq["id"], list.Items[0]["id"])

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+adminReq["id"].(string)+"/approve", token, nil, http.StatusNotFound)
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/"+clinicalReq["id"].(string)+"/approve", token, nil, http.StatusOK)
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests/sweep", token, nil, http.StatusForbidden)
}

func TestCalendarEndpoints(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")

	days := decode[struct {
		Count int `json:"count"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/calendar/business-days?start=2025-07-01&end=2025-07-07", "", nil, http.StatusOK).Data)
	assert.Equal(t, 4, days.Count)

	breakdown := decode[struct {
		PTODays   int `json:"ptoDays"`
		Breakdown struct {
			TotalDays int `json:"totalDays"`
		} `json:"breakdown"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/calendar/breakdown?start=bogus&end=2025-07-07", "", nil, http.StatusOK).Data)
	assert.Equal(t, 1, breakdown.PTODays)
	assert.Equal(t, 0, breakdown.Breakdown.TotalDays)

	holidays := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/calendar/holidays?year=2025", "", nil, http.StatusOK).Data)
	assert.NotEmpty(t, holidays)

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "riley.chen@example.com",
		"startDate":     "2025-07-01",
		"endDate":       "2025-07-02",
	}, http.StatusCreated)

	resp := rawRequest(t, client, http.MethodGet, ts.URL+"/api/v1/calendar/events?format=csv", token, nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "text/csv", resp.header.Get("Content-Type"))
	assert.Contains(t, string(resp.body), "Riley Chen")
}

func TestSummaryPDFAndMetrics(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")

	created := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "avery.patel@example.com",
		"startDate":     "2025-06-02",
		"endDate":       "2025-06-03",
	}, http.StatusCreated).Data)

	resp := rawRequest(t, client, http.MethodGet, ts.URL+"/api/v1/requests/"+created["id"].(string)+"/summary.pdf", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "application/pdf", resp.header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.body, []byte("%PDF")))

	snapshot := decode[map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/metricsz", token, nil, http.StatusOK).Data)
	events := snapshot["events"].(map[string]any)
	assert.Equal(t, float64(1), events["request.submitted"])

	ready := rawRequest(t, client, http.MethodGet, ts.URL+"/readyz", "", nil)
	assert.Equal(t, http.StatusOK, ready.status)
}

func TestEmployeeAdmin(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")

	created := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/employees", token, map[string]any{
		"name":        "Sam Rivera",
		"email":       "Sam.Rivera@Example.com",
		"phone":       "(555) 010-2000",
		"position":    "CVI RNs",
		"ptoHours":    30,
		"refreshDate": "2025-01-15",
	}, http.StatusCreated).Data)
	assert.Equal(t, "sam.rivera@example.com", created["email"])
	assert.Equal(t, staff.TeamClinical, created["managerTeam"])
	assert.Equal(t, float64(4), created["ptoDays"])

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/employees", token, map[string]any{
		"name":     "Sam Again",
		"email":    "sam.rivera@example.com",
		"position": "CVI RNs",
	}, http.StatusConflict)

	summary := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/employees/refresh", token, map[string]any{
		"asOf": "2025-01-15",
	}, http.StatusOK).Data)
	assert.Equal(t, float64(1), summary["employeesRefreshed"])

	refreshed := decode[map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+created["id"].(string), token, nil, http.StatusOK).Data)
	assert.Equal(t, "2026-01-15", refreshed["refreshDate"])
	assert.Equal(t, float64(60), refreshed["balance"].(map[string]any)["ptoHours"])

	positions := decode[[]string](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/positions", "", nil, http.StatusOK).Data)
	assert.Contains(t, positions, "CVI RNs")
}

func TestEmployeeEditDeactivateAndHistory(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")
	jordan, err := app.Lifecycle.FindEmployeeByEmail(context.Background(), "jordan.lee@example.com")
	require.NoError(t, err)
	morgan, err := app.Lifecycle.FindEmployeeByEmail(context.Background(), "morgan.diaz@example.com")
	require.NoError(t, err)

	edited := decode[map[string]any](t, doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/"+jordan.ID, token, map[string]any{
		"ptoHours":    45.5,
		"refreshDate": "2026-02-01",
	}, http.StatusOK).Data)
	assert.Equal(t, 45.5, edited["balance"].(map[string]any)["ptoHours"])
	assert.Equal(t, "2026-02-01", edited["refreshDate"])
	assert.Equal(t, jordan.Name, edited["name"])

	bad := doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/"+jordan.ID, token, map[string]any{
		"refreshDate": "soon",
		"ptoHours":    -1,
	}, http.StatusBadRequest)
	assert.Equal(t, "validation_error", bad.Error.Code)
	clash := doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/"+jordan.ID, token, map[string]any{
		"email": "morgan.diaz@example.com",
	}, http.StatusConflict)
	assert.Equal(t, "employee_exists", clash.Error.Code)
	doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/missing", token, map[string]any{"name": "X"}, http.StatusNotFound)

	trail := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/audit/events?action=employee.update", token, nil, http.StatusOK).Data)
	require.Len(t, trail, 1)
	assert.Equal(t, jordan.ID, trail[0]["entityId"])

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "jordan.lee@example.com",
		"startDate":     "2025-05-05",
		"endDate":       "2025-05-06",
	}, http.StatusCreated)
	history := decode[struct {
		Employee map[string]any   `json:"employee"`
		Requests []map[string]any `json:"requests"`
		Stats    map[string]any   `json:"stats"`
	}](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+jordan.ID+"/history", token, nil, http.StatusOK).Data)
	assert.Equal(t, jordan.ID, history.Employee["id"])
	require.Len(t, history.Requests, 1)
	assert.Equal(t, float64(1), history.Stats["total"])
	assert.Equal(t, float64(1), history.Stats["pending"])
	assert.Equal(t, float64(0), history.Stats["ptoDaysUsed"])
	assert.NotEmpty(t, history.Stats["refreshStatus"])

	removed := decode[map[string]any](t, doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/employees/"+morgan.ID, token, nil, http.StatusOK).Data)
	assert.NotEmpty(t, removed["deactivatedAt"])
	doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/employees/"+morgan.ID, token, nil, http.StatusOK)
	deletes := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/audit/events?action=employee.deactivate", token, nil, http.StatusOK).Data)
	assert.Len(t, deletes, 1)

	inactive := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "morgan.diaz@example.com",
		"startDate":     "2025-05-05",
		"endDate":       "2025-05-05",
	}, http.StatusConflict)
	assert.Equal(t, "employee_inactive", inactive.Error.Code)
	unknown := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/callouts", "", map[string]any{
		"phone":   "555-010-1003",
		"message": "sick",
	}, http.StatusNotFound)
	assert.Equal(t, "unknown_caller", unknown.Error.Code)

	ids := func(query string) []string {
		list := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees"+query, token, nil, http.StatusOK).Data)
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, e["id"].(string))
		}
		return out
	}
	assert.NotContains(t, ids(""), morgan.ID)
	assert.Contains(t, ids("?includeInactive=true"), morgan.ID)
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+morgan.ID+"/history", token, nil, http.StatusOK)
}

func TestEmployeeEditScope(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	_, err := app.Managers.EnsureManager(context.Background(), auth.Manager{
		Name:  "Clinical Lead",
		Email: "clinical@example.com",
		Role:  staff.RoleClinical,
		Team:  staff.TeamClinical,
	}, "Clinical123!")
	require.NoError(t, err)
	token := login(t, client, ts.URL, "clinical@example.com", "Clinical123!")
	jordan, err := app.Lifecycle.FindEmployeeByEmail(context.Background(), "jordan.lee@example.com")
	require.NoError(t, err)
	morgan, err := app.Lifecycle.FindEmployeeByEmail(context.Background(), "morgan.diaz@example.com")
	require.NoError(t, err)

	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+jordan.ID, token, nil, http.StatusNotFound)
	doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/"+jordan.ID, token, map[string]any{"ptoHours": 1}, http.StatusNotFound)
	doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/employees/"+jordan.ID, token, nil, http.StatusNotFound)
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/employees/"+jordan.ID+"/history", token, nil, http.StatusNotFound)

	moved := doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/"+morgan.ID, token, map[string]any{
		"position": "CT Desk",
	}, http.StatusForbidden)
	assert.Equal(t, "forbidden", moved.Error.Code)
	doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/employees/"+morgan.ID, token, map[string]any{"sickHours": 20}, http.StatusOK)
}

func TestRegistrationJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, "admin@example.com", "Admin123!")
	_, err := app.Managers.EnsureManager(context.Background(), auth.Manager{
		Name:  "Clinical Lead",
		Email: "clinical@example.com",
		Role:  staff.RoleClinical,
		Team:  staff.TeamClinical,
	}, "Clinical123!")
	require.NoError(t, err)
	clinicalToken := login(t, client, ts.URL, "clinical@example.com", "Clinical123!")

	submitted := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations", "", map[string]any{
		"name":     "Dana Fox",
		"email":    "Dana.Fox@example.com",
		"phone":    "555-010-3000",
		"team":     "Admin",
		"position": "CT Desk",
	}, http.StatusCreated).Data)
	regID := submitted["id"].(string)
	assert.Equal(t, "pending", submitted["status"])
	assert.Equal(t, "dana.fox@example.com", submitted["email"])

	pending := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations", "", map[string]any{
		"name":     "Dana Fox",
		"email":    "dana.fox@example.com",
		"team":     "admin",
		"position": "CT Desk",
	}, http.StatusConflict)
	assert.Equal(t, "registration_pending", pending.Error.Code)
	existing := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations", "", map[string]any{
		"name":     "Jordan Lee",
		"email":    "jordan.lee@example.com",
		"team":     "admin",
		"position": "Front Desk/Admin",
	}, http.StatusConflict)
	assert.Equal(t, "employee_exists", existing.Error.Code)
	invalid := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations", "", map[string]any{
		"name":  "No Team",
		"email": "not-an-email",
	}, http.StatusBadRequest)
	assert.Equal(t, "validation_error", invalid.Error.Code)

	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/registrations", "", nil, http.StatusUnauthorized)
	queue := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/registrations", token, nil, http.StatusOK).Data)
	require.Len(t, queue, 1)
	assert.Equal(t, regID, queue[0]["id"])
	clinicalQueue := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/registrations", clinicalToken, nil, http.StatusOK).Data)
	assert.Empty(t, clinicalQueue)
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/registrations/"+regID, clinicalToken, nil, http.StatusNotFound)
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations/"+regID+"/approve", clinicalToken, nil, http.StatusNotFound)
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/registrations?status=later", token, nil, http.StatusBadRequest)

	approved := decode[struct {
		Registration map[string]any `json:"registration"`
		Employee     map[string]any `json:"employee"`
	}](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations/"+regID+"/approve", token, nil, http.StatusOK).Data)
	assert.Equal(t, "approved", approved.Registration["status"])
	assert.Equal(t, approved.Employee["id"], approved.Registration["employeeId"])
	assert.Equal(t, float64(60), approved.Employee["balance"].(map[string]any)["ptoHours"])

	again := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations/"+regID+"/approve", token, nil, http.StatusConflict)
	assert.Equal(t, "already_processed", again.Error.Code)
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations/"+regID+"/deny", token, nil, http.StatusConflict)

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/requests", "", map[string]any{
		"employeeEmail": "dana.fox@example.com",
		"startDate":     "2025-05-05",
		"endDate":       "2025-05-05",
	}, http.StatusCreated)

	nurse := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations", "", map[string]any{
		"name":     "Eli Moss",
		"email":    "eli.moss@example.com",
		"team":     "clinical",
		"position": "CVI RNs",
	}, http.StatusCreated).Data)
	denied := decode[map[string]any](t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/registrations/"+nurse["id"].(string)+"/deny", clinicalToken, map[string]any{
		"reason": "Not on the roster",
	}, http.StatusOK).Data)
	assert.Equal(t, "denied", denied["status"])
	assert.Equal(t, "Not on the roster", denied["denialReason"])

	all := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/registrations?status=all", token, nil, http.StatusOK).Data)
	assert.Len(t, all, 2)
	trail := decode[[]map[string]any](t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/audit/events?action=registration.approve", token, nil, http.StatusOK).Data)
	require.Len(t, trail, 1)
	assert.Equal(t, regID, trail[0]["entityId"])
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, http.StatusOK)
	payload := decode[map[string]any](t, resp.Data)
	token, _ := payload["token"].(string)
	require.NotEmpty(t, token, "expected token")
	return token
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func rawRequest(t *testing.T, client *http.Client, method, url, token string, body any) rawResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return rawResponse{status: resp.StatusCode, header: resp.Header, body: raw}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	resp := rawRequest(t, client, method, url, token, body)
	require.Equalf(t, want, resp.status, "%s %s: %s", method, url, strings.TrimSpace(string(resp.body)))
	var env envelope
	require.NoError(t, json.Unmarshal(resp.body, &env))
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
