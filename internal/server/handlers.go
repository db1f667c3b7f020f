// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"assettrack-notifier/internal/common/config"
	"assettrack-notifier/internal/common/errors"
)

const (
	scanLockName   = "expiration-scan"
	digestLockName = "weekly-digest"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

// handleExpirationScan triggers one scan run. A second trigger while a run
// holds the lock gets 409 instead of a duplicate run.
func (s *Server) handleExpirationScan(w http.ResponseWriter, r *http.Request) {
	release, ok := s.acquire(w, r, scanLockName)
	if !ok {
		return
	}
	defer release()

	started := time.Now()
	result := s.scan.Run(r.Context())
	s.recordRun(r.Context(), scanLockName, result.Success, time.Since(started))
	if !result.Success {
		s.alertFailure(r.Context(), "Expiration scan completed with failures",
			fmt.Sprintf("sent=%d failed=%d\n%s",
				result.SentCount, result.FailedCount, strings.Join(result.Errors, "\n")))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWeeklyDigest(w http.ResponseWriter, r *http.Request) {
	release, ok := s.acquire(w, r, digestLockName)
	if !ok {
		return
	}
	defer release()

	started := time.Now()
	result := s.digest.Run(r.Context())
	s.recordRun(r.Context(), digestLockName, result.Success, time.Since(started))
	if !result.Success {
		s.alertFailure(r.Context(), "Weekly digest completed with failures",
			fmt.Sprintf("organizations=%d sent=%d failed=%d\n%s",
				result.Organizations, result.SentCount, result.FailedCount,
				strings.Join(result.Errors, "\n")))
	}
	writeJSON(w, http.StatusOK, result)
}

// acquire takes the named run lock and writes the error response itself
// when the lock is unavailable. The returned release is best effort; an
// expired lock falls back to the TTL.
func (s *Server) acquire(w http.ResponseWriter, r *http.Request, name string) (func(), bool) {
	ttl := config.GetDuration(s.cfg.Notifications.LockTTL)
	ok, err := s.locks.AcquireLock(r.Context(), name, ttl)
	if err != nil {
		s.log.WithError(err).Error("Run lock acquisition failed", map[string]interface{}{
			"job": name,
		})
		stdErr := errors.NewDatabaseConnectionFailedError(err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": stdErr.Message,
			"code":  stdErr.Code,
		})
		return nil, false
	}
	if !ok {
		stdErr := errors.NewRunAlreadyInProgressError(name)
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": stdErr.Message,
			"code":  stdErr.Code,
		})
		return nil, false
	}

	release := func() {
		if err := s.locks.ReleaseLock(context.Background(), name); err != nil {
			s.log.WithError(err).Warn("Run lock release failed", map[string]interface{}{
				"job": name,
			})
		}
	}
	return release, true
}

func (s *Server) recordRun(ctx context.Context, job string, success bool, duration time.Duration) {
	if s.obs == nil {
		return
	}
	status := "success"
	if !success {
		status = "partial_failure"
	}
	s.obs.RecordRun(ctx, job, status)
	s.obs.RecordRunDuration(ctx, job, duration)
}

func (s *Server) alertFailure(ctx context.Context, subject, message string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.PublishAlert(ctx, subject, message); err != nil {
		s.log.WithError(err).Warn("Failure alert publish failed", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
