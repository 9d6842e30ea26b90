package scheduler

import (
	"context"
	"time"
)

// historyLimit is the number of runs kept per job
const historyLimit = 100

// Job is a unit of scheduled work
type Job interface {
	Name() string

	// Run executes the job. ctx is cancelled when the scheduler stops or the
	// job timeout elapses.
	Run(ctx context.Context) error

	// Schedule returns a standard 5-field cron expression, e.g. "0 18 * * 1-5"
	Schedule() string
}

// JobResult is the outcome of one triggered run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobStats summarizes the retained runs of a job
type JobStats struct {
	JobName      string        `json:"job_name"`
	Schedule     string        `json:"schedule"`
	TotalRuns    int           `json:"total_runs"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	SuccessRate  float64       `json:"success_rate"`
	AvgDuration  time.Duration `json:"avg_duration"`
	LastError    string        `json:"last_error,omitempty"`
	LastRun      *time.Time    `json:"last_run,omitempty"`
	LastSuccess  *time.Time    `json:"last_success,omitempty"`
	LastFailure  *time.Time    `json:"last_failure,omitempty"`
	NextRun      *time.Time    `json:"next_run,omitempty"`
}

// JobHistory keeps the most recent runs of a job in start order
type JobHistory struct {
	Results []JobResult
}

// AddResult records a run and forgets the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	if len(h.Results) == historyLimit {
		copy(h.Results, h.Results[1:])
		h.Results[len(h.Results)-1] = result
		return
	}
	h.Results = append(h.Results, result)
}

// Latest returns the most recent run
func (h *JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// SuccessRate is the fraction of retained runs that succeeded
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(h.successes()) / float64(len(h.Results))
}

func (h *JobHistory) successes() int {
	n := 0
	for _, r := range h.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Stats fills the run counters of a JobStats. Schedule and NextRun are left
// to the scheduler.
func (h *JobHistory) Stats(name string) JobStats {
	st := JobStats{
		JobName:      name,
		TotalRuns:    len(h.Results),
		SuccessCount: h.successes(),
		SuccessRate:  h.SuccessRate(),
	}
	st.FailureCount = st.TotalRuns - st.SuccessCount
	if st.TotalRuns == 0 {
		return st
	}

	var total time.Duration
	for i := range h.Results {
		r := h.Results[i]
		total += r.Duration
		start := r.StartTime
		if r.Success {
			st.LastSuccess = &start
		} else {
			st.LastFailure = &start
			st.LastError = r.Error
		}
	}
	st.AvgDuration = total / time.Duration(st.TotalRuns)

	last := h.Results[len(h.Results)-1].StartTime
	st.LastRun = &last
	return st
}
