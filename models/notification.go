package models

// NotificationRunResult is the per-employee outcome of one dispatch.
type NotificationRunResult struct {
	CardNo       string `json:"card_no"`
	EmployeeName string `json:"employee_name"`
	Status       string `json:"status"`
	NoticeType   string `json:"notice_type"`
	ToEmail      string `json:"to_email"`
	Error        string `json:"error,omitempty"`
}

// NotificationRunResponse is the full report of a dispatch. It is a pure
// read model: each run replaces the previous report wholesale.
type NotificationRunResponse struct {
	Date         string                  `json:"date"`
	TotalTargets int                     `json:"total_targets"`
	SentCount    int                     `json:"sent_count"`
	SkippedCount int                     `json:"skipped_count"`
	FailedCount  int                     `json:"failed_count"`
	Results      []NotificationRunResult `json:"results"`
}

// DashboardSummary is the backend's headline attendance summary for today.
type DashboardSummary struct {
	Date            string `json:"date"`
	PresentCount    int    `json:"present_count"`
	AbsentCount     int    `json:"absent_count"`
	MissingPunches  int    `json:"missing_punches"`
	ActiveEmployees int    `json:"active_employees"`
}
