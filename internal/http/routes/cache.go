package routes

import (
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/arqbot/cache"
)

const (
	day = 24 * time.Hour

	adminBodyLimit = 1 << 16

	// reportKeyLen is how much of a key the detailed report shows
	reportKeyLen = 50

	// maxThresholdMillis is the longest threshold a time.Duration can hold
	maxThresholdMillis = float64(math.MaxInt64 / int64(time.Millisecond))
)

type statsBody struct {
	Size            int     `json:"size"`
	OldestEntry     *int64  `json:"oldestEntry"`
	NewestEntry     *int64  `json:"newestEntry"`
	OldestEntryDate *string `json:"oldestEntryDate"`
	NewestEntryDate *string `json:"newestEntryDate"`
	ExpirationTime  int64   `json:"expirationTime"`
	ExpirationDays  float64 `json:"expirationDays"`
}

func newStatsBody(st cache.Stats) statsBody {
	body := statsBody{
		Size:           st.Size,
		ExpirationTime: st.TTL.Milliseconds(),
		ExpirationDays: float64(st.TTL) / float64(day),
	}
	if st.OldestEntry != nil {
		ms, iso := st.OldestEntry.UnixMilli(), isoTime(*st.OldestEntry)
		body.OldestEntry, body.OldestEntryDate = &ms, &iso
	}
	if st.NewestEntry != nil {
		ms, iso := st.NewestEntry.UnixMilli(), isoTime(*st.NewestEntry)
		body.NewestEntry, body.NewestEntryDate = &ms, &iso
	}
	return body
}

type oldEntryBody struct {
	Key       string `json:"key"`
	AgeInDays int    `json:"ageInDays"`
}

func truncateKey(key string) string {
	runes := []rune(key)
	if len(runes) <= reportKeyLen {
		return key
	}
	return string(runes[:reportKeyLen]) + "..."
}

type refreshBody struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Refreshed int    `json:"refreshed"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"stats":   newStatsBody(s.Store.Stats()),
	})
	return nil
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) error {
	s.Store.Clear()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cache cleared successfully",
	})
	return nil
}

func (s *Server) handleCacheAction(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Action string `json:"action"`
	}
	if err := decodeBody(w, r, adminBodyLimit, &body); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("bad cache action body")
		writeFailure(w, r, http.StatusBadRequest, "Invalid request body")
		return nil
	}

	if body.Action != "refresh" {
		writeFailure(w, r, http.StatusBadRequest, "Invalid action")
		return nil
	}

	res := cache.RefreshOlderThan(s.Store, cache.HalfTTL(s.Store))
	s.logRefresh(r, "action", res)
	writeJSON(w, r, http.StatusOK, refreshBody{
		Success:   true,
		Message:   "Cache entries refreshed successfully",
		Refreshed: res.Refreshed,
	})
	return nil
}

// handleCacheRefresh refreshes entries older than the threshold in the body
// (milliseconds). A missing or unreadable body means five days.
func (s *Server) handleCacheRefresh(w http.ResponseWriter, r *http.Request) error {
	threshold := cache.DefaultMaintenanceThreshold

	var body struct {
		Threshold *float64 `json:"threshold"`
	}
	if err := decodeBody(w, r, adminBodyLimit, &body); err == nil && body.Threshold != nil && *body.Threshold > 0 {
		threshold = time.Duration(min(*body.Threshold, maxThresholdMillis) * float64(time.Millisecond))
	}

	res := cache.RefreshOlderThan(s.Store, threshold)
	s.logRefresh(r, "manual", res)
	writeJSON(w, r, http.StatusOK, refreshBody{
		Success:   true,
		Message:   "Cache entries refreshed successfully",
		Refreshed: res.Refreshed,
	})
	return nil
}

func (s *Server) handleCacheDetails(w http.ResponseWriter, r *http.Request) error {
	report := cache.BuildReport(s.Store)

	oldest := make([]oldEntryBody, 0, len(report.Oldest))
	for _, e := range report.Oldest {
		oldest = append(oldest, oldEntryBody{
			Key:       truncateKey(e.Key),
			AgeInDays: int(e.Age / day),
		})
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":         true,
		"stats":           newStatsBody(report.Stats),
		"ageDistribution": report.Ages,
		"oldestEntries":   oldest,
	})
	return nil
}

// handleMaintenance is called by the scheduler. Both outcomes carry a
// timestamp.
func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	const failMessage = "Failed to complete cache maintenance"

	var (
		res    cache.RefreshResult
		failed bool
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				failed = true
				hlog.FromRequest(r).Error().Interface("panic", p).Msg(failMessage)
			}
		}()
		res = cache.RefreshOlderThan(s.Store, s.maintenanceThreshold)
	}()

	timestamp := isoTime(s.now())
	if failed {
		writeJSON(w, r, http.StatusInternalServerError, map[string]any{
			"success":   false,
			"error":     failMessage,
			"timestamp": timestamp,
		})
		return
	}

	s.logRefresh(r, "scheduled", res)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Cache maintenance completed successfully",
		"refreshed": res.Refreshed,
		"timestamp": timestamp,
	})
}

func (s *Server) logRefresh(r *http.Request, trigger string, res cache.RefreshResult) {
	hlog.FromRequest(r).Info().
		Str("trigger", trigger).
		Int("candidates", res.Candidates).
		Int("refreshed", res.Refreshed).
		Int("size_before", res.Before.Size).
		Int("size_after", res.After.Size).
		Msg("cache refresh completed")
}
