package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoapply/models"
)

// MaxBulkJobs caps one batch. Larger inputs are rejected up front, never
// truncated silently.
const MaxBulkJobs = 50

// BatchValidationError rejects a bulk request before any job starts.
type BatchValidationError struct {
	Reason string
}

func (e *BatchValidationError) Error() string {
	return "invalid bulk run: " + e.Reason
}

// BulkRunProgress is the aggregate counter snapshot for a batch. Outside of
// active job processing, CompletedJobs == SuccessfulJobs + FailedJobs and
// CompletedJobs <= TotalJobs.
type BulkRunProgress struct {
	TotalJobs      int    `json:"total_jobs"`
	CompletedJobs  int    `json:"completed_jobs"`
	SuccessfulJobs int    `json:"successful_jobs"`
	FailedJobs     int    `json:"failed_jobs"`
	CurrentJobURL  string `json:"current_job_url,omitempty"`
	IsComplete     bool   `json:"is_complete"`
}

// ApplicationRunner is the unit of work the bulk runner repeats: one
// complete application attempt against one URL. BrowserAutomation
// implements it; tests stub it.
type ApplicationRunner interface {
	RunApplication(ctx context.Context, jobURL string, profile *models.ApplicantProfile, resumePath, coverLetterPath string) error
}

// BulkRunner drives applications across a list of job URLs strictly in
// input order, one at a time. Sequential execution keeps the audit trail
// coherent and avoids hammering ATS vendors from one applicant identity.
type BulkRunner struct {
	id              string
	runner          ApplicationRunner
	profile         *models.ApplicantProfile
	resumePath      string
	coverLetterPath string
	jobs            []string

	// Randomized politeness delay between consecutive jobs; skipped after
	// the last one.
	delayMin time.Duration
	delayMax time.Duration

	mu       sync.Mutex
	progress BulkRunProgress
	failed   []string
	paused   bool
}

// NewBulkRunner validates the batch and prepares a runner. Validation
// failures are batch-fatal: nothing is processed.
func NewBulkRunner(runner ApplicationRunner, jobURLs []string, profile *models.ApplicantProfile, resumePath, coverLetterPath string) (*BulkRunner, error) {
	if len(jobURLs) == 0 {
		return nil, &BatchValidationError{Reason: "job URL list is empty"}
	}
	if len(jobURLs) > MaxBulkJobs {
		return nil, &BatchValidationError{Reason: fmt.Sprintf("%d jobs exceeds the %d job limit", len(jobURLs), MaxBulkJobs)}
	}
	if profile == nil {
		return nil, &BatchValidationError{Reason: "applicant profile is required"}
	}
	if resumePath == "" {
		return nil, &BatchValidationError{Reason: "resume file is required"}
	}

	jobs := make([]string, len(jobURLs))
	copy(jobs, jobURLs)

	return &BulkRunner{
		id:              uuid.NewString(),
		runner:          runner,
		profile:         profile,
		resumePath:      resumePath,
		coverLetterPath: coverLetterPath,
		jobs:            jobs,
		delayMin:        2 * time.Second,
		delayMax:        5 * time.Second,
		progress:        BulkRunProgress{TotalJobs: len(jobs)},
	}, nil
}

func (b *BulkRunner) ID() string {
	return b.id
}

// SetDelayBounds overrides the inter-job delay window. Tests shrink it.
func (b *BulkRunner) SetDelayBounds(min, max time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delayMin, b.delayMax = min, max
}

// Run processes the batch. Job N's counters are always updated before job
// N+1 starts; pausing never aborts the in-flight job, it only prevents the
// next one from starting.
func (b *BulkRunner) Run(ctx context.Context) {
	log.Printf("=== Bulk run %s: %d jobs ===", b.id, len(b.jobs))
	b.runJobs(ctx, b.jobs)

	b.mu.Lock()
	b.progress.IsComplete = true
	b.progress.CurrentJobURL = ""
	b.mu.Unlock()
	log.Printf("Bulk run %s complete: %+v", b.id, b.Progress())
}

// RetryFailed re-submits exactly the jobs currently in the failed list,
// clearing it first -- a job that fails twice in a row lands back on the
// list rather than being swallowed.
func (b *BulkRunner) RetryFailed(ctx context.Context) {
	b.mu.Lock()
	retry := b.failed
	b.failed = nil
	b.progress.TotalJobs += len(retry)
	b.progress.IsComplete = false
	b.mu.Unlock()

	if len(retry) == 0 {
		return
	}
	log.Printf("Bulk run %s: retrying %d failed jobs", b.id, len(retry))
	b.runJobs(ctx, retry)

	b.mu.Lock()
	b.progress.IsComplete = true
	b.progress.CurrentJobURL = ""
	b.mu.Unlock()
}

func (b *BulkRunner) runJobs(ctx context.Context, jobs []string) {
	for i, jobURL := range jobs {
		if !b.waitWhilePaused(ctx) {
			return
		}

		b.mu.Lock()
		b.progress.CurrentJobURL = jobURL
		b.mu.Unlock()

		err := b.runner.RunApplication(ctx, jobURL, b.profile, b.resumePath, b.coverLetterPath)

		b.mu.Lock()
		b.progress.CompletedJobs++
		if err != nil {
			b.progress.FailedJobs++
			b.failed = append(b.failed, jobURL)
			log.Printf("✗ Job failed (%s): %v", jobURL, err)
		} else {
			b.progress.SuccessfulJobs++
			log.Printf("✓ Job succeeded: %s", jobURL)
		}
		b.progress.CurrentJobURL = ""
		b.mu.Unlock()

		if i < len(jobs)-1 {
			if !b.politenessDelay(ctx) {
				return
			}
		}
	}
}

// Pause stops the runner from starting the next job. The in-flight job, if
// any, runs to completion and its counters are recorded.
func (b *BulkRunner) Pause() {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
	log.Printf("Bulk run %s paused", b.id)
}

// Resume lets a paused runner continue from the next unprocessed URL.
func (b *BulkRunner) Resume() {
	b.mu.Lock()
	b.paused = false
	b.mu.Unlock()
	log.Printf("Bulk run %s resumed", b.id)
}

// Progress returns a snapshot of the aggregate counters.
func (b *BulkRunner) Progress() BulkRunProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

// FailedJobs returns a copy of the URLs currently marked failed.
func (b *BulkRunner) FailedJobs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	failed := make([]string, len(b.failed))
	copy(failed, b.failed)
	return failed
}

func (b *BulkRunner) waitWhilePaused(ctx context.Context) bool {
	for {
		b.mu.Lock()
		paused := b.paused
		b.mu.Unlock()
		if !paused {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// politenessDelay sleeps a random duration inside the configured window to
// reduce anti-bot detection risk between consecutive jobs.
func (b *BulkRunner) politenessDelay(ctx context.Context) bool {
	b.mu.Lock()
	min, max := b.delayMin, b.delayMax
	b.mu.Unlock()

	delay := min
	if max > min {
		delay += time.Duration(rand.Int63n(int64(max - min)))
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
