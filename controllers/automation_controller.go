package controllers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"autoapply/models"
	"autoapply/services"
	"autoapply/utils"
)

// AutomationController exposes the browser automation engine over HTTP:
// single application sessions, bulk runs, and the applicant profile the
// value resolver draws from.
type AutomationController struct {
	browser      *services.BrowserAutomation
	sessionOpts  services.SessionOptions
	userModel    *models.UserModel
	profileModel *models.ApplicantProfileModel
	appModel     *models.JobApplicationModel
	email        *services.EmailNotificationService
	s3           *services.S3Service

	bulkDelayMin time.Duration
	bulkDelayMax time.Duration

	mu       sync.RWMutex
	sessions map[string]*services.AutomationSession
	bulkRuns map[string]*services.BulkRunner
}

func NewAutomationController(
	browser *services.BrowserAutomation,
	sessionOpts services.SessionOptions,
	userModel *models.UserModel,
	profileModel *models.ApplicantProfileModel,
	appModel *models.JobApplicationModel,
	email *services.EmailNotificationService,
	s3 *services.S3Service,
) *AutomationController {
	return &AutomationController{
		browser:      browser,
		sessionOpts:  sessionOpts,
		userModel:    userModel,
		profileModel: profileModel,
		appModel:     appModel,
		email:        email,
		s3:           s3,
		sessions:     make(map[string]*services.AutomationSession),
		bulkRuns:     make(map[string]*services.BulkRunner),
	}
}

// SetBulkDelayBounds sets the politeness window applied to every bulk run
// this controller launches.
func (c *AutomationController) SetBulkDelayBounds(min, max time.Duration) {
	c.bulkDelayMin, c.bulkDelayMax = min, max
}

type StartSessionRequest struct {
	JobURL          string `json:"job_url" binding:"required,url"`
	ResumePath      string `json:"resume_path" binding:"required"`
	CoverLetterPath string `json:"cover_letter_path"`
}

// StartSession launches one automation session for the caller and returns
// immediately; progress is polled through GetSession.
func (c *AutomationController) StartSession(ctx *gin.Context) {
	var req StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequestError(ctx, "Invalid session request", err)
		return
	}

	userID := ctx.GetInt("user_id")
	profile, err := c.profileModel.GetByUserID(userID)
	if err != nil {
		utils.BadRequestError(ctx, "Applicant profile not found, save a profile first", err)
		return
	}

	driver, err := c.browser.NewDriver()
	if err != nil {
		utils.InternalServerError(ctx, "Could not start browser session", err)
		return
	}

	session := services.NewAutomationSession(driver, req.JobURL, profile, req.ResumePath, req.CoverLetterPath, c.sessionOpts)

	if _, err := c.appModel.Create(userID, session.ID(), req.JobURL); err != nil {
		utils.LogWarn("Could not persist application record", err.Error())
	}
	session.SetNotifier(c.terminalNotifier(userID))
	go c.archiveResume(session.ID(), req.ResumePath)

	c.mu.Lock()
	c.sessions[session.ID()] = session
	c.mu.Unlock()

	session.Start(context.Background())
	utils.SuccessResponse(ctx, http.StatusAccepted, "Automation session started", session.Snapshot())
}

// terminalNotifier records the session outcome and emails the applicant.
// Fired exactly once per session, on submitted or error.
func (c *AutomationController) terminalNotifier(userID int) services.TerminalNotifier {
	return func(snapshot services.SessionSnapshot) {
		if err := c.appModel.UpdateOutcome(snapshot.SessionID, string(snapshot.State), snapshot.Message, snapshot.ScreenshotPath); err != nil {
			utils.LogError("Could not record session outcome", err)
		}
		user, err := c.userModel.GetByID(userID)
		if err != nil {
			utils.LogError("Could not load user for notification", err)
			return
		}
		if err := c.email.SendSessionOutcome(user.Email, user.Name, snapshot); err != nil {
			utils.LogError("Could not send outcome notification", err)
		}
	}
}

func (c *AutomationController) GetSession(ctx *gin.Context) {
	session, ok := c.lookupSession(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Session not found")
		return
	}
	ctx.JSON(http.StatusOK, session.Snapshot())
}

// SubmitSession pre-empts the auto-submit grace timer.
func (c *AutomationController) SubmitSession(ctx *gin.Context) {
	session, ok := c.lookupSession(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Session not found")
		return
	}
	if err := session.SubmitNow(); err != nil {
		utils.ErrorResponseWithCode(ctx, http.StatusConflict, "Cannot submit", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Submit requested", session.Snapshot())
}

func (c *AutomationController) CancelSession(ctx *gin.Context) {
	session, ok := c.lookupSession(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Session not found")
		return
	}
	session.Cancel()
	utils.SuccessResponse(ctx, http.StatusOK, "Session cancelled", session.Snapshot())
}

func (c *AutomationController) lookupSession(id string) (*services.AutomationSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[id]
	return session, ok
}

type BulkRunRequest struct {
	JobURLs         []string `json:"job_urls" binding:"required"`
	ResumePath      string   `json:"resume_path" binding:"required"`
	CoverLetterPath string   `json:"cover_letter_path"`
}

// StartBulkRun validates and launches a sequential batch of applications.
func (c *AutomationController) StartBulkRun(ctx *gin.Context) {
	var req BulkRunRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequestError(ctx, "Invalid bulk request", err)
		return
	}

	userID := ctx.GetInt("user_id")
	profile, err := c.profileModel.GetByUserID(userID)
	if err != nil {
		utils.BadRequestError(ctx, "Applicant profile not found, save a profile first", err)
		return
	}

	runner, err := services.NewBulkRunner(c.browser, req.JobURLs, profile, req.ResumePath, req.CoverLetterPath)
	if err != nil {
		var validationErr *services.BatchValidationError
		if errors.As(err, &validationErr) {
			utils.BadRequestError(ctx, "Bulk run rejected", err)
			return
		}
		utils.InternalServerError(ctx, "Could not start bulk run", err)
		return
	}

	if c.bulkDelayMax >= c.bulkDelayMin && c.bulkDelayMax > 0 {
		runner.SetDelayBounds(c.bulkDelayMin, c.bulkDelayMax)
	}

	c.mu.Lock()
	c.bulkRuns[runner.ID()] = runner
	c.mu.Unlock()

	go runner.Run(context.Background())
	utils.SuccessResponse(ctx, http.StatusAccepted, "Bulk run started", gin.H{
		"bulk_run_id": runner.ID(),
		"progress":    runner.Progress(),
	})
}

func (c *AutomationController) GetBulkRun(ctx *gin.Context) {
	runner, ok := c.lookupBulkRun(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Bulk run not found")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"bulk_run_id": runner.ID(),
		"progress":    runner.Progress(),
		"failed_jobs": runner.FailedJobs(),
	})
}

func (c *AutomationController) PauseBulkRun(ctx *gin.Context) {
	runner, ok := c.lookupBulkRun(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Bulk run not found")
		return
	}
	runner.Pause()
	utils.SuccessResponse(ctx, http.StatusOK, "Bulk run paused", runner.Progress())
}

func (c *AutomationController) ResumeBulkRun(ctx *gin.Context) {
	runner, ok := c.lookupBulkRun(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Bulk run not found")
		return
	}
	runner.Resume()
	utils.SuccessResponse(ctx, http.StatusOK, "Bulk run resumed", runner.Progress())
}

// RetryBulkRun re-runs exactly the failed URLs of a completed batch.
func (c *AutomationController) RetryBulkRun(ctx *gin.Context) {
	runner, ok := c.lookupBulkRun(ctx.Param("id"))
	if !ok {
		utils.NotFoundError(ctx, "Bulk run not found")
		return
	}
	if !runner.Progress().IsComplete {
		utils.ErrorResponseWithCode(ctx, http.StatusConflict, "Bulk run is still in progress", nil)
		return
	}
	if len(runner.FailedJobs()) == 0 {
		utils.SuccessResponse(ctx, http.StatusOK, "No failed jobs to retry", runner.Progress())
		return
	}

	go runner.RetryFailed(context.Background())
	utils.SuccessResponse(ctx, http.StatusAccepted, "Retrying failed jobs", runner.Progress())
}

func (c *AutomationController) lookupBulkRun(id string) (*services.BulkRunner, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	runner, ok := c.bulkRuns[id]
	return runner, ok
}

// GetProfile returns the caller's stored applicant profile.
func (c *AutomationController) GetProfile(ctx *gin.Context) {
	userID := ctx.GetInt("user_id")
	profile, err := c.profileModel.GetByUserID(userID)
	if err != nil {
		utils.NotFoundError(ctx, "Applicant profile not found")
		return
	}
	ctx.JSON(http.StatusOK, profile)
}

// SaveProfile upserts the caller's applicant profile.
func (c *AutomationController) SaveProfile(ctx *gin.Context) {
	var profile models.ApplicantProfile
	if err := ctx.ShouldBindJSON(&profile); err != nil {
		utils.BadRequestError(ctx, "Invalid profile data", err)
		return
	}
	userID := ctx.GetInt("user_id")
	if err := c.profileModel.Upsert(userID, &profile); err != nil {
		utils.InternalServerError(ctx, "Could not save profile", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Profile saved", profile)
}

// ListApplications returns the caller's application history with download
// links for the stored audit screenshots.
func (c *AutomationController) ListApplications(ctx *gin.Context) {
	userID := ctx.GetInt("user_id")
	applications, err := c.appModel.GetByUserID(userID, 50, 0)
	if err != nil {
		utils.InternalServerError(ctx, "Could not load applications", err)
		return
	}
	for i := range applications {
		applications[i].ScreenshotPath = c.screenshotLink(applications[i].ScreenshotPath)
	}
	ctx.JSON(http.StatusOK, gin.H{"applications": applications})
}

// GetApplication looks one application up by its 8-character code.
func (c *AutomationController) GetApplication(ctx *gin.Context) {
	application, ok := c.ownedApplication(ctx)
	if !ok {
		return
	}
	application.ScreenshotPath = c.screenshotLink(application.ScreenshotPath)
	ctx.JSON(http.StatusOK, application)
}

// DeleteApplication removes an application record and its stored screenshot.
func (c *AutomationController) DeleteApplication(ctx *gin.Context) {
	application, ok := c.ownedApplication(ctx)
	if !ok {
		return
	}
	if c.s3 != nil && strings.HasPrefix(application.ScreenshotPath, "screenshots/") {
		if err := c.s3.DeleteFile(application.ScreenshotPath); err != nil {
			utils.LogWarn("Could not delete stored screenshot", err.Error())
		}
	}
	if err := c.appModel.Delete(application.ID); err != nil {
		utils.InternalServerError(ctx, "Could not delete application", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Application deleted", nil)
}

// ownedApplication resolves the :code route param and enforces that the
// record belongs to the caller.
func (c *AutomationController) ownedApplication(ctx *gin.Context) (*models.JobApplication, bool) {
	application, err := c.appModel.GetByApplicationCode(ctx.Param("code"))
	if err != nil {
		utils.NotFoundError(ctx, "Application not found")
		return nil, false
	}
	if application.UserID != ctx.GetInt("user_id") {
		utils.NotFoundError(ctx, "Application not found")
		return nil, false
	}
	return application, true
}

// screenshotLink turns a stored screenshot reference into something the
// caller can fetch: S3 keys become presigned URLs, local paths are served
// from /static, and anything else passes through unchanged.
func (c *AutomationController) screenshotLink(path string) string {
	if path == "" {
		return ""
	}
	if c.s3 != nil && strings.HasPrefix(path, "screenshots/") {
		if url, err := c.s3.GeneratePresignedURL(path); err == nil {
			return url
		}
	}
	if strings.HasPrefix(path, "static/") || strings.HasPrefix(path, "./static/") {
		return "/" + strings.TrimPrefix(path, "./")
	}
	return path
}

// archiveResume keeps a copy of the submitted resume alongside the
// screenshots so the audit trail shows exactly what was uploaded.
func (c *AutomationController) archiveResume(sessionID, resumePath string) {
	if c.s3 == nil || resumePath == "" {
		return
	}
	key := "resumes/" + sessionID + filepath.Ext(resumePath)
	if _, err := c.s3.UploadFile(resumePath, key); err != nil {
		utils.LogWarn("Could not archive resume", err.Error())
	}
}
