package cache

import "time"

const (
	// DefaultMaintenanceThreshold is the age past which scheduled
	// maintenance refreshes an entry.
	DefaultMaintenanceThreshold = 5 * 24 * time.Hour

	day = 24 * time.Hour
)

// RefreshResult describes one refresh pass
type RefreshResult struct {
	Candidates int
	Refreshed  int
	Before     Stats
	After      Stats
}

// RefreshOlderThan refreshes every entry created more than age ago. It is
// shared by the refresh sweeper, the admin endpoints and scheduled
// maintenance.
func RefreshOlderThan(store Maintainer, age time.Duration) RefreshResult {
	result := RefreshResult{Before: store.Stats()}

	candidates := store.EntriesOlderThan(age)
	result.Candidates = len(candidates)
	for _, c := range candidates {
		if store.RefreshEntry(c.Key) {
			result.Refreshed++
		}
	}

	result.After = store.Stats()
	return result
}

// HalfTTL is the age at which the refresh sweeper considers an entry close
// enough to expiry to extend it
func HalfTTL(store Maintainer) time.Duration {
	return store.TTL() / 2
}

// AgeDistribution buckets entries by age
type AgeDistribution struct {
	LessThanOneDay   int `json:"lessThanOneDay"`
	OneToThreeDays   int `json:"oneToThreeDays"`
	ThreeToFiveDays  int `json:"threeToFiveDays"`
	MoreThanFiveDays int `json:"moreThanFiveDays"`
}

// Report is the detailed view served to operators
type Report struct {
	Stats  Stats
	Ages   AgeDistribution
	Oldest []AgedEntry
}

// maxReportSample caps how many old entries a Report lists
const maxReportSample = 10

// BuildReport computes the age histogram and a sample of the oldest
// entries, those older than five days
func BuildReport(store Inspector) Report {
	stats := store.Stats()
	report := Report{Stats: stats}

	// one scan, already sorted oldest first
	older := store.EntriesOlderThan(day)
	for _, e := range older {
		switch {
		case e.Age > 5*day:
			report.Ages.MoreThanFiveDays++
			if len(report.Oldest) < maxReportSample {
				report.Oldest = append(report.Oldest, e)
			}
		case e.Age > 3*day:
			report.Ages.ThreeToFiveDays++
		default:
			report.Ages.OneToThreeDays++
		}
	}
	report.Ages.LessThanOneDay = max(stats.Size-len(older), 0)

	return report
}
