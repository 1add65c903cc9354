package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/models"
)

// stubApplicationRunner records the order of processed URLs and fails the
// ones listed in failURLs.
type stubApplicationRunner struct {
	mu       sync.Mutex
	calls    []string
	failURLs map[string]bool
}

func newStubRunner(failURLs ...string) *stubApplicationRunner {
	fails := make(map[string]bool)
	for _, url := range failURLs {
		fails[url] = true
	}
	return &stubApplicationRunner{failURLs: fails}
}

func (s *stubApplicationRunner) RunApplication(ctx context.Context, jobURL string, profile *models.ApplicantProfile, resumePath, coverLetterPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, jobURL)
	if s.failURLs[jobURL] {
		return errors.New("application not submitted")
	}
	return nil
}

func (s *stubApplicationRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubApplicationRunner) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]string, len(s.calls))
	copy(calls, s.calls)
	return calls
}

func (s *stubApplicationRunner) setFailure(url string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failURLs[url] = fail
}

func newTestBulkRunner(t *testing.T, runner ApplicationRunner, jobURLs []string) *BulkRunner {
	t.Helper()
	b, err := NewBulkRunner(runner, jobURLs, &models.ApplicantProfile{FirstName: "Jane"}, "resume.pdf", "")
	require.NoError(t, err)
	b.SetDelayBounds(0, 0)
	return b
}

func TestNewBulkRunner_Validation(t *testing.T) {
	stub := newStubRunner()
	profile := &models.ApplicantProfile{}

	var validationErr *BatchValidationError

	_, err := NewBulkRunner(stub, nil, profile, "resume.pdf", "")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "empty")

	tooMany := make([]string, MaxBulkJobs+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("https://jobs.example.com/%d", i)
	}
	_, err = NewBulkRunner(stub, tooMany, profile, "resume.pdf", "")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "51 jobs")

	_, err = NewBulkRunner(stub, []string{"https://jobs.example.com/1"}, nil, "resume.pdf", "")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "profile")

	_, err = NewBulkRunner(stub, []string{"https://jobs.example.com/1"}, profile, "", "")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "resume")
}

func TestBulkRunner_AcceptsExactlyMaxJobs(t *testing.T) {
	jobs := make([]string, MaxBulkJobs)
	for i := range jobs {
		jobs[i] = fmt.Sprintf("https://jobs.example.com/%d", i)
	}
	_, err := NewBulkRunner(newStubRunner(), jobs, &models.ApplicantProfile{}, "resume.pdf", "")
	assert.NoError(t, err)
}

func TestBulkRunner_SequentialInInputOrder(t *testing.T) {
	jobs := []string{
		"https://jobs.example.com/a",
		"https://jobs.example.com/b",
		"https://jobs.example.com/c",
	}
	stub := newStubRunner()
	b := newTestBulkRunner(t, stub, jobs)

	b.Run(context.Background())

	assert.Equal(t, jobs, stub.callLog())
	progress := b.Progress()
	assert.Equal(t, 3, progress.TotalJobs)
	assert.Equal(t, 3, progress.CompletedJobs)
	assert.Equal(t, 3, progress.SuccessfulJobs)
	assert.Equal(t, 0, progress.FailedJobs)
	assert.True(t, progress.IsComplete)
	assert.Empty(t, progress.CurrentJobURL)
}

func TestBulkRunner_FailureDoesNotStopBatch(t *testing.T) {
	jobs := []string{
		"https://jobs.example.com/a",
		"https://jobs.example.com/b",
		"https://jobs.example.com/c",
	}
	stub := newStubRunner("https://jobs.example.com/b")
	b := newTestBulkRunner(t, stub, jobs)

	b.Run(context.Background())

	progress := b.Progress()
	assert.Equal(t, 3, progress.CompletedJobs)
	assert.Equal(t, 2, progress.SuccessfulJobs)
	assert.Equal(t, 1, progress.FailedJobs)
	assert.Equal(t, []string{"https://jobs.example.com/b"}, b.FailedJobs())
}

func TestBulkRunner_ProgressInvariant(t *testing.T) {
	jobs := []string{"https://jobs.example.com/a", "https://jobs.example.com/b"}
	stub := newStubRunner("https://jobs.example.com/a")
	b := newTestBulkRunner(t, stub, jobs)

	b.Run(context.Background())

	progress := b.Progress()
	assert.Equal(t, progress.CompletedJobs, progress.SuccessfulJobs+progress.FailedJobs)
	assert.LessOrEqual(t, progress.CompletedJobs, progress.TotalJobs)
}

func TestBulkRunner_RetryFailed(t *testing.T) {
	jobs := []string{"https://jobs.example.com/a", "https://jobs.example.com/b"}
	stub := newStubRunner("https://jobs.example.com/b")
	b := newTestBulkRunner(t, stub, jobs)

	b.Run(context.Background())
	require.Equal(t, []string{"https://jobs.example.com/b"}, b.FailedJobs())

	// The flaky job recovers on the second attempt.
	stub.setFailure("https://jobs.example.com/b", false)
	b.RetryFailed(context.Background())

	progress := b.Progress()
	assert.Equal(t, 3, progress.TotalJobs, "retried job is counted again")
	assert.Equal(t, 3, progress.CompletedJobs)
	assert.Equal(t, 2, progress.SuccessfulJobs)
	assert.Equal(t, 1, progress.FailedJobs, "original failure stays on the record")
	assert.Equal(t, progress.CompletedJobs, progress.SuccessfulJobs+progress.FailedJobs)
	assert.Empty(t, b.FailedJobs())
	assert.True(t, progress.IsComplete)
}

func TestBulkRunner_RetryFailedTwiceKeepsFailing(t *testing.T) {
	jobs := []string{"https://jobs.example.com/a"}
	stub := newStubRunner("https://jobs.example.com/a")
	b := newTestBulkRunner(t, stub, jobs)

	b.Run(context.Background())
	b.RetryFailed(context.Background())

	assert.Equal(t, []string{"https://jobs.example.com/a"}, b.FailedJobs(), "a job that fails again lands back on the list")
	assert.Equal(t, 2, b.Progress().FailedJobs)
}

func TestBulkRunner_RetryWithNoFailuresIsNoop(t *testing.T) {
	jobs := []string{"https://jobs.example.com/a"}
	stub := newStubRunner()
	b := newTestBulkRunner(t, stub, jobs)

	b.Run(context.Background())
	b.RetryFailed(context.Background())

	assert.Equal(t, 1, stub.callCount())
	assert.Equal(t, 1, b.Progress().TotalJobs)
}

func TestBulkRunner_PauseBlocksNextJob(t *testing.T) {
	jobs := []string{"https://jobs.example.com/a", "https://jobs.example.com/b"}
	stub := newStubRunner()
	b := newTestBulkRunner(t, stub, jobs)

	b.Pause()
	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, stub.callCount(), "paused runner must not start any job")

	b.Resume()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never finished after resume")
	}
	assert.Equal(t, 2, stub.callCount())
	assert.True(t, b.Progress().IsComplete)
}

func TestBulkRunner_CancelWhilePaused(t *testing.T) {
	jobs := []string{"https://jobs.example.com/a"}
	stub := newStubRunner()
	b := newTestBulkRunner(t, stub, jobs)

	ctx, cancel := context.WithCancel(context.Background())
	b.Pause()
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never returned after cancellation")
	}
	assert.Equal(t, 0, stub.callCount())
}
