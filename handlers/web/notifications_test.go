// handlers/web/notifications_test.go
package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewatch/models"
)

type recordedRun struct {
	Date    string
	CardNo  string
	HasCard bool
}

// dispatchBackend fakes the employee search and notification run endpoints.
type dispatchBackend struct {
	mu        sync.Mutex
	employees []models.Employee
	runs      []recordedRun
	searches  []string
	report    models.NotificationRunResponse
}

func (b *dispatchBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/employees":
		b.searches = append(b.searches, r.URL.Query().Get("search"))
		_ = json.NewEncoder(w).Encode(models.EmployeeList{Employees: b.employees})

	case r.Method == http.MethodPost && r.URL.Path == "/notifications/run":
		_, hasCard := r.URL.Query()["card_no"]
		b.runs = append(b.runs, recordedRun{
			Date:    r.URL.Query().Get("date"),
			CardNo:  r.URL.Query().Get("card_no"),
			HasCard: hasCard,
		})
		_ = json.NewEncoder(w).Encode(b.report)

	default:
		http.NotFound(w, r)
	}
}

func (b *dispatchBackend) recordedRuns() []recordedRun {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedRun, len(b.runs))
	copy(out, b.runs)
	return out
}

func dispatchFixture() *dispatchBackend {
	return &dispatchBackend{
		employees: []models.Employee{
			{EmpID: "1", CardNo: "100", EmployeeName: "Ali Demir", Department: "Security"},
			{EmpID: "2", CardNo: "200", EmployeeName: "Ayse Kaya", Department: "Operations"},
		},
		report: models.NotificationRunResponse{
			Date:         "2026-08-29",
			TotalTargets: 2,
			SentCount:    1,
			SkippedCount: 0,
			FailedCount:  1,
			Results: []models.NotificationRunResult{
				{CardNo: "100", EmployeeName: "Ali Demir", Status: "sent", NoticeType: "late_entry", ToEmail: "ali@example.com"},
				{CardNo: "200", EmployeeName: "Ayse Kaya", Status: "failed", NoticeType: "missing_exit", Error: "mailbox unavailable"},
			},
		},
	}
}

func TestNotificationsSearchRendersResults(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	resp, body := env.get(t, "/htmx/settings/notifications/search?q=ali", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ali Demir")
	assert.Contains(t, body, "Ayse Kaya")

	backend.mu.Lock()
	searches := backend.searches
	backend.mu.Unlock()
	assert.Equal(t, []string{"ali"}, searches)
}

func TestNotificationsRunSelectedWithoutSelection(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	form := url.Values{}
	form.Set("date", "2026-08-29")

	resp, body := env.postForm(t, "/htmx/settings/notifications/run/selected", form, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Select an employee first.")
	assert.Empty(t, backend.recordedRuns(), "validation failure sends no request")
}

func TestNotificationsRunAllRendersReport(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	form := url.Values{}
	form.Set("date", "2026-08-29")

	resp, body := env.postForm(t, "/htmx/settings/notifications/run/all", form, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ali Demir")
	assert.Contains(t, body, "mailbox unavailable")

	runs := backend.recordedRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, "2026-08-29", runs[0].Date)
	assert.False(t, runs[0].HasCard, "run-all carries no card parameter")
}

func TestNotificationsSelectThenRunSelected(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	// Populate the result set first, then pick the second employee.
	_, _ = env.get(t, "/htmx/settings/notifications/search?q=a", cookie)

	form := url.Values{}
	form.Set("card_no", "200")
	resp, _ := env.postForm(t, "/htmx/settings/notifications/select", form, cookie)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	form = url.Values{}
	form.Set("date", "2026-08-29")
	_, _ = env.postForm(t, "/htmx/settings/notifications/run/selected", form, cookie)

	runs := backend.recordedRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, "200", runs[0].CardNo)
}

func TestNotificationsBadDateFallsBackToToday(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	form := url.Values{}
	form.Set("date", "29/08/2026")

	_, _ = env.postForm(t, "/htmx/settings/notifications/run/all", form, cookie)

	runs := backend.recordedRuns()
	require.Len(t, runs, 1)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, runs[0].Date)
}

func TestNotificationsSearchFailureKeepsPanelUsable(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	cookie := env.session(t)

	resp, body := env.get(t, "/htmx/settings/notifications/search?q=ali", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Employee search failed.")
}

func TestNotificationsExportWithoutRun(t *testing.T) {
	env := newTestEnv(t, dispatchFixture())
	cookie := env.session(t)

	resp, body := env.get(t, "/htmx/settings/notifications/export", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No notification run to export yet.")
}

func TestNotificationsExportAfterRun(t *testing.T) {
	env := newTestEnv(t, dispatchFixture())
	cookie := env.session(t)

	form := url.Values{}
	form.Set("date", "2026-08-29")
	_, _ = env.postForm(t, "/htmx/settings/notifications/run/all", form, cookie)

	resp, body := env.get(t, "/htmx/settings/notifications/export", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notification-run-2026-08-29.xlsx")
	assert.NotEmpty(t, body)
}

func TestNotificationsReportReplacedWholesale(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	form := url.Values{}
	form.Set("date", "2026-08-29")
	_, _ = env.postForm(t, "/htmx/settings/notifications/run/all", form, cookie)

	// A second run's report fully replaces the first.
	backend.mu.Lock()
	backend.report = models.NotificationRunResponse{
		Date:         "2026-08-30",
		TotalTargets: 1,
		SentCount:    1,
		Results: []models.NotificationRunResult{
			{CardNo: "300", EmployeeName: "Mehmet Can", Status: "sent", NoticeType: "late_entry", ToEmail: "mehmet@example.com"},
		},
	}
	backend.mu.Unlock()

	form.Set("date", "2026-08-30")
	_, body := env.postForm(t, "/htmx/settings/notifications/run/all", form, cookie)
	assert.Contains(t, body, "Mehmet Can")
	assert.NotContains(t, body, "Ali Demir")
}

func TestNotificationsIdlePanelsAreEvicted(t *testing.T) {
	backend := dispatchFixture()
	env := newTestEnv(t, backend)
	cookie := env.session(t)

	resp, _ := env.get(t, "/htmx/settings/notifications", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h := env.notifications
	h.mu.Lock()
	require.Len(t, h.panels, 1)
	var orphan *notificationsPanel
	for _, p := range h.panels {
		orphan = p
	}
	h.mu.Unlock()

	// A recently touched panel survives the sweep.
	h.evictIdle(time.Hour)
	h.mu.Lock()
	assert.Len(t, h.panels, 1)
	h.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	h.evictIdle(time.Millisecond)

	h.mu.Lock()
	assert.Empty(t, h.panels)
	h.mu.Unlock()

	// The evicted panel's coordinator is closed, so nothing fires later.
	_, open := <-orphan.coord.Search("ali")
	assert.False(t, open)

	// The next request gets a fresh panel.
	resp, body := env.get(t, "/htmx/settings/notifications", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)
}
