package calendarhandler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
)

func TestToEventTitles(t *testing.T) {
	callOut := toEvent(leave.Request{ID: "1", EmployeeName: "Riley", IsCallOut: true, Status: leave.StatusApproved})
	assert.Equal(t, "Riley (call-out)", callOut.Title)
	assert.Equal(t, "approved", callOut.Status)

	partial := toEvent(leave.Request{ID: "2", EmployeeName: "Sam", PartialDay: true, Status: leave.StatusPending})
	assert.Equal(t, "Sam (partial)", partial.Title)
}

func TestWriteEventsCSV(t *testing.T) {
	rec := httptest.NewRecorder()
	writeEventsCSV(rec, []Event{{ID: "7", Title: "Riley", Start: "2025-07-01", End: "2025-07-02", Status: "pending", Type: "vacation", Hours: 15}})
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "7,Riley,2025-07-01,2025-07-02,pending,vacation,false,,15.00", lines[1])
}

func TestHolidaysRejectsBadYear(t *testing.T) {
	h := NewHandler(calendar.New(), nil)
	h.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/holidays?year=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/holidays", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2025-07-04")
}

func TestBusinessDaysRejectsLongRange(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, nil).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/business-days?start=2000-01-01&end=2015-01-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date range is too long")
}

func TestBreakdownCapsReadableRanges(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, nil).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/breakdown?start=0001-01-01&end=9999-12-31", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date range is too long")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/breakdown?start=garbage&end=9999-12-31", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ptoDays":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/breakdown?start=2025-12-24&end=2025-12-26", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ptoDays":2`)
}
