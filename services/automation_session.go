package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoapply/models"
)

// SessionState tracks one application attempt through its lifecycle.
// starting is the only initial state; submitted and error are terminal.
type SessionState string

const (
	StateStarting        SessionState = "starting"
	StateWaitingForLogin SessionState = "waiting_for_login"
	StateReadyToFill     SessionState = "ready_to_fill"
	StateFormFilled      SessionState = "form_filled"
	StateSubmitted       SessionState = "submitted"
	StateError           SessionState = "error"
)

func (s SessionState) Terminal() bool {
	return s == StateSubmitted || s == StateError
}

// SessionOptions tune the session's timing behavior. Tests shrink these to
// milliseconds.
type SessionOptions struct {
	LoginPollInterval time.Duration
	LoginPollBackoff  time.Duration
	AutoSubmitDelay   time.Duration
	// LoginWaitTimeout of zero means wait indefinitely for manual login.
	LoginWaitTimeout time.Duration
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		LoginPollInterval: 3 * time.Second,
		LoginPollBackoff:  5 * time.Second,
		AutoSubmitDelay:   5 * time.Second,
	}
}

// SessionSnapshot is the read-only view callers poll. The derived booleans
// are computed from the state so they can never disagree with it.
type SessionSnapshot struct {
	SessionID      string       `json:"session_id"`
	JobURL         string       `json:"job_url"`
	State          SessionState `json:"state"`
	RequiresLogin  bool         `json:"requires_login"`
	IsLoggedIn     bool         `json:"is_logged_in"`
	FormFilled     bool         `json:"form_filled"`
	ReadyToSubmit  bool         `json:"ready_to_submit"`
	Message        string       `json:"message"`
	FillResult     *FillResult  `json:"fill_result,omitempty"`
	ScreenshotPath string       `json:"screenshot_path,omitempty"`
}

// TerminalNotifier receives the final snapshot exactly once when a session
// reaches submitted or error. The audit/notification collaborator hangs off
// this hook.
type TerminalNotifier func(snapshot SessionSnapshot)

// AutomationSession drives one job application end to end: navigate, wait
// for manual login if needed, fill, submit. All state mutation happens in
// the run goroutine or under the mutex, so transitions are serialized even
// though login polling and caller-driven submits race.
type AutomationSession struct {
	id              string
	jobURL          string
	profile         *models.ApplicantProfile
	resumePath      string
	coverLetterPath string
	driver          ApplicationDriver
	opts            SessionOptions
	notifier        TerminalNotifier

	mu             sync.Mutex
	state          SessionState
	message        string
	requiresLogin  bool
	loggedIn       bool
	fillResult     *FillResult
	screenshotPath string
	notified       bool

	submitCh   chan struct{}
	done       chan struct{}
	cancelFunc context.CancelFunc
}

func NewAutomationSession(driver ApplicationDriver, jobURL string, profile *models.ApplicantProfile, resumePath, coverLetterPath string, opts SessionOptions) *AutomationSession {
	return &AutomationSession{
		id:              uuid.NewString(),
		jobURL:          jobURL,
		profile:         profile,
		resumePath:      resumePath,
		coverLetterPath: coverLetterPath,
		driver:          driver,
		opts:            opts,
		state:           StateStarting,
		submitCh:        make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
}

func (s *AutomationSession) ID() string {
	return s.id
}

// SetNotifier installs the audit hook. Must be called before Start.
func (s *AutomationSession) SetNotifier(notifier TerminalNotifier) {
	s.notifier = notifier
}

// Start launches the session's run loop. The session owns its driver from
// here on and tears it down when the loop exits. A session already in a
// terminal state (cancelled before launch) never touches the browser: the
// driver is torn down and the done channel closes without running.
func (s *AutomationSession) Start(ctx context.Context) {
	s.mu.Lock()
	terminal := s.state.Terminal()
	if !terminal {
		ctx, s.cancelFunc = context.WithCancel(ctx)
	}
	s.mu.Unlock()

	if terminal {
		if err := s.driver.Teardown(); err != nil {
			log.Printf("WARNING: session %s teardown: %v", s.id, err)
		}
		s.notifyTerminal()
		close(s.done)
		return
	}
	go s.run(ctx)
}

// Done closes when the session reaches a terminal state.
func (s *AutomationSession) Done() <-chan struct{} {
	return s.done
}

// SubmitNow forces form_filled → submitted, pre-empting the auto-submit
// grace timer. Calling it after submission already happened is a no-op.
func (s *AutomationSession) SubmitNow() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case StateFormFilled:
		select {
		case s.submitCh <- struct{}{}:
		default:
		}
		return nil
	case StateSubmitted:
		return nil
	default:
		return fmt.Errorf("session is not ready to submit (state %s)", state)
	}
}

// Cancel hard-cancels the session from any non-terminal state: the state
// becomes error immediately and the run loop tears down the browser context.
func (s *AutomationSession) Cancel() {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = StateError
		s.message = "session cancelled"
	}
	cancel := s.cancelFunc
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Snapshot returns a consistent read of the session's current status.
func (s *AutomationSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		SessionID:      s.id,
		JobURL:         s.jobURL,
		State:          s.state,
		RequiresLogin:  s.requiresLogin,
		IsLoggedIn:     s.loggedIn,
		FormFilled:     s.state == StateFormFilled || s.state == StateSubmitted,
		ReadyToSubmit:  s.state == StateFormFilled,
		Message:        s.message,
		FillResult:     s.fillResult,
		ScreenshotPath: s.screenshotPath,
	}
}

func (s *AutomationSession) run(ctx context.Context) {
	defer close(s.done)
	defer s.notifyTerminal()
	defer func() {
		if err := s.driver.Teardown(); err != nil {
			log.Printf("WARNING: session %s teardown: %v", s.id, err)
		}
	}()

	s.setState(StateStarting, "opening job page")
	if err := s.driver.Navigate(s.jobURL); err != nil {
		s.fail("could not load job page: " + err.Error())
		return
	}
	if s.halted(ctx) {
		return
	}

	requiresLogin, err := s.driver.RequiresLogin()
	if err != nil {
		log.Printf("WARNING: login probe failed, assuming no login needed: %v", err)
		requiresLogin = false
	}
	if requiresLogin {
		s.mu.Lock()
		s.requiresLogin = true
		s.mu.Unlock()
		s.setState(StateWaitingForLogin, "waiting for manual login")

		if err := s.driver.OpenLoginWindow(s.jobURL); err != nil {
			log.Printf("WARNING: could not open login window: %v", err)
		}
		if !s.waitForLogin(ctx) {
			s.fail("could not complete login")
			return
		}
		s.mu.Lock()
		s.loggedIn = true
		s.mu.Unlock()
	}

	if s.halted(ctx) {
		return
	}
	s.setState(StateReadyToFill, "filling application form")
	result, err := s.driver.FillForm(s.profile, s.resumePath, s.coverLetterPath)
	if err != nil {
		s.fail(err.Error())
		return
	}
	if s.halted(ctx) {
		return
	}
	s.mu.Lock()
	s.fillResult = result
	s.mu.Unlock()

	if failures := result.RequiredFailures(); failures > 0 {
		s.fail(fmt.Sprintf("partially filled, %d required fields failed", failures))
		return
	}
	s.setState(StateFormFilled, "form filled, submitting after grace delay")

	if path, err := s.driver.CaptureScreenshot("pre_submit"); err == nil {
		s.mu.Lock()
		s.screenshotPath = path
		s.mu.Unlock()
	}

	// Grace window so a human can still intervene. An explicit SubmitNow
	// wins over the auto-submit timer.
	select {
	case <-s.submitCh:
		log.Printf("Session %s: explicit submit received", s.id)
	case <-time.After(s.opts.AutoSubmitDelay):
		log.Printf("Session %s: auto-submitting after grace delay", s.id)
	case <-ctx.Done():
		s.fail("session cancelled")
		return
	}

	// A hard cancel can race the submit signal; re-check before clicking.
	if s.halted(ctx) {
		return
	}
	if err := s.driver.Submit(); err != nil {
		s.fail("form filled but submission failed: " + err.Error())
		return
	}

	if path, err := s.driver.CaptureScreenshot("confirmation"); err == nil {
		s.mu.Lock()
		s.screenshotPath = path
		s.mu.Unlock()
	}
	s.setState(StateSubmitted, "application submitted")
}

// waitForLogin polls the automated context until login is detected, the
// context is cancelled, or the optional timeout expires. Poll errors back
// the interval off; the poll timer stops when this returns, so no timer
// leaks past the waiting_for_login state.
func (s *AutomationSession) waitForLogin(ctx context.Context) bool {
	var deadline <-chan time.Time
	if s.opts.LoginWaitTimeout > 0 {
		deadlineTimer := time.NewTimer(s.opts.LoginWaitTimeout)
		defer deadlineTimer.Stop()
		deadline = deadlineTimer.C
	}

	interval := s.opts.LoginPollInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			log.Printf("Session %s: login wait timed out", s.id)
			return false
		case <-timer.C:
		}

		loggedIn, err := s.driver.IsLoggedIn()
		if err != nil {
			log.Printf("Session %s: login poll error, backing off: %v", s.id, err)
			interval = s.opts.LoginPollBackoff
		} else {
			if loggedIn {
				return true
			}
			interval = s.opts.LoginPollInterval
		}
		timer.Reset(interval)
	}
}

// halted reports whether the run loop must stop: the context was cancelled
// or a concurrent Cancel already drove the state terminal. Checked between
// driver calls so a hard cancel never reaches Submit.
func (s *AutomationSession) halted(ctx context.Context) bool {
	if ctx.Err() != nil {
		s.fail("session cancelled")
		return true
	}
	s.mu.Lock()
	terminal := s.state.Terminal()
	s.mu.Unlock()
	return terminal
}

// setState records a transition unless a terminal state (e.g. a concurrent
// Cancel) already won.
func (s *AutomationSession) setState(state SessionState, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = state
	s.message = message
	log.Printf("Session %s: %s", s.id, state)
}

func (s *AutomationSession) fail(message string) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = StateError
		s.message = message
		log.Printf("Session %s: error: %s", s.id, message)
	}
	s.mu.Unlock()

	if path, err := s.driver.CaptureScreenshot("error"); err == nil {
		s.mu.Lock()
		s.screenshotPath = path
		s.mu.Unlock()
	}
}

// notifyTerminal delivers the final snapshot to the audit collaborator
// exactly once.
func (s *AutomationSession) notifyTerminal() {
	s.mu.Lock()
	if s.notified || s.notifier == nil {
		s.mu.Unlock()
		return
	}
	s.notified = true
	notifier := s.notifier
	s.mu.Unlock()

	notifier(s.Snapshot())
}
