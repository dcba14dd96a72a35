package core

// DashboardStats are the fleet-wide aggregates shown at the top of the dashboard.
type DashboardStats struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	Failures         int     `json:"failures"`
	Security         int     `json:"security"`
	TimeSavedMinutes int     `json:"timeSavedMinutes"`
	FixRate          float64 `json:"fixRate"`
}

// ComputeStats aggregates the dashboard counters. FixRate is the mean of the
// per-repository fix rates over repositories that attempted at least one fix.
func ComputeStats(repos []*Repository) DashboardStats {
	var stats DashboardStats
	var rateSum float64
	var withAttempts int

	for _, r := range repos {
		if r == nil {
			continue
		}
		stats.Total++
		if r.Status == StatusCompleted {
			stats.Active++
		}
		stats.Failures += r.FailedRuns()
		stats.Security += len(r.SecurityFindings)
		stats.TimeSavedMinutes += r.Metrics.TimeSavedMinutes
		if r.Metrics.AIFixAttempts > 0 {
			rateSum += r.Metrics.FixRate()
			withAttempts++
		}
	}

	if withAttempts > 0 {
		stats.FixRate = rateSum / float64(withAttempts)
	}
	return stats
}
