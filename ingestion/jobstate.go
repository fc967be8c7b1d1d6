package ingestion

import (
	"sync"
	"time"

	"github.com/poiesic/logsift/core"
)

// jobState is the registry entry for one job. The worker running the job is
// the only writer after dispatch; readers take snapshots.
type jobState struct {
	seq uint64

	mu  sync.RWMutex
	job core.Job
}

func (s *jobState) snapshot() core.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.job.Clone()
}

func (s *jobState) status() core.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.job.Status
}

// transition moves the job to next if the state machine allows it.
// started_at and completed_at are stamped on the way.
func (s *jobState) transition(next core.Status, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.job.Status.CanTransition(next) {
		return false
	}
	s.job.Status = next
	if next == core.StatusProcessing && s.job.StartedAt.IsZero() {
		s.job.StartedAt = now
	}
	if next.IsTerminal() && s.job.CompletedAt.IsZero() {
		s.job.CompletedAt = now
	}
	return true
}

// complete finishes a processing job successfully.
func (s *jobState) complete(now time.Time) {
	s.mu.Lock()
	if s.job.Status == core.StatusProcessing {
		s.setProgressLocked(100, "completed", now)
	}
	s.mu.Unlock()
	s.transition(core.StatusCompleted, now)
}

// fail finishes a processing job with reason.
func (s *jobState) fail(reason string, now time.Time) {
	s.mu.Lock()
	if s.job.Status == core.StatusProcessing {
		s.job.Error = reason
		s.appendLogLocked(s.job.ProgressPercent, "failed: "+reason, now)
	}
	s.mu.Unlock()
	s.transition(core.StatusFailed, now)
}

// progress raises progress_percent and, when message is set, logs it.
// Progress never moves backwards.
func (s *jobState) progress(percent float64, message string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job.Status.IsTerminal() {
		return
	}
	s.setProgressLocked(percent, message, now)
}

func (s *jobState) setProgressLocked(percent float64, message string, now time.Time) {
	percent = min(max(percent, 0), 100)
	if percent > s.job.ProgressPercent {
		s.job.ProgressPercent = percent
	}
	if message != "" {
		s.appendLogLocked(s.job.ProgressPercent, message, now)
	}
}

func (s *jobState) appendLogLocked(percent float64, message string, now time.Time) {
	s.job.ProgressLog = append(s.job.ProgressLog, core.ProgressEntry{
		Time:    now,
		Percent: percent,
		Message: message,
	})
}

// addBytes, recordSuccess and recordFailure ignore jobs that are no longer
// processing, such as a job failed by Shutdown while its worker was stuck.
func (s *jobState) addBytes(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job.Status != core.StatusProcessing {
		return
	}
	s.job.BytesProcessed += n
}

func (s *jobState) recordSuccess(id core.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job.Status != core.StatusProcessing {
		return
	}
	s.job.LinesProcessed++
	s.job.ProcessedIDs = append(s.job.ProcessedIDs, id)
}

func (s *jobState) recordFailure(id core.ID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job.Status != core.StatusProcessing {
		return
	}
	s.job.LinesProcessed++
	s.job.FailedIDs = append(s.job.FailedIDs, id)
	s.job.ErrorMessages = append(s.job.ErrorMessages, message)
}
