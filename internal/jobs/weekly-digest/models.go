// internal/jobs/weekly-digest/models.go
package weeklydigest

// Result summarizes one digest run across every organization.
type Result struct {
	Success       bool     `json:"success"`
	SentCount     int      `json:"sentCount"`
	FailedCount   int      `json:"failedCount"`
	Organizations int      `json:"organizations"`
	Errors        []string `json:"errors,omitempty"`
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// orgStats are the per-tenant aggregates rendered into the digest body.
// Expiring and expired are recomputed from expiration dates at run time,
// independent of the guard flags.
type orgStats struct {
	TotalAssets  int
	ExpiringSoon int
	Expired      int
	NewThisWeek  int
}

// expiringItem is one row of the ranked soonest-expiring list.
type expiringItem struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	DaysRemaining int    `json:"daysRemaining"`
}
