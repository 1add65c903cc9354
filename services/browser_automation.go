package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/playwright-community/playwright-go"

	"autoapply/models"
)

// ApplicationDriver is the capability set the session state machine needs
// from a browser. The engine depends on this interface, not on a specific
// driver; tests substitute a fake.
type ApplicationDriver interface {
	Navigate(jobURL string) error
	RequiresLogin() (bool, error)
	IsLoggedIn() (bool, error)
	OpenLoginWindow(jobURL string) error
	FillForm(profile *models.ApplicantProfile, resumePath, coverLetterPath string) (*FillResult, error)
	Submit() error
	CaptureScreenshot(event string) (string, error)
	Teardown() error
}

// loginIndicators mark a page that wants credentials before showing the
// application form.
var loginIndicators = []string{
	"input[type='password']",
	"a[href*='login']",
	"a[href*='signin']",
	"a[href*='sign-in']",
	"button:has-text('Sign in')",
	"button:has-text('Log in')",
}

// submitSelectors are tried in order when submitting the filled form.
var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	"button:has-text('Submit application')",
	"button:has-text('Submit Application')",
	"button:has-text('Submit')",
	"button:has-text('Apply')",
	"button[class*='submit']",
	"button[aria-label*='Submit']",
}

// BrowserAutomation owns the shared playwright process and browser. Each
// session gets its own browser context from NewDriver; contexts are
// independent, so multiple sessions can run concurrently.
type BrowserAutomation struct {
	playwright  *playwright.Playwright
	browser     playwright.Browser
	classifier  *FieldClassifier
	executor    *FillExecutor
	screenshots *ScreenshotService
	sessionOpts SessionOptions
}

func NewBrowserAutomation(sessionOpts SessionOptions, headless bool) (*BrowserAutomation, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %v", err)
	}

	if !headless {
		log.Println("Running browser in visible mode")
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %v", err)
	}

	return &BrowserAutomation{
		playwright:  pw,
		browser:     browser,
		classifier:  NewFieldClassifier(),
		executor:    NewFillExecutor(),
		screenshots: NewScreenshotService(),
		sessionOpts: sessionOpts,
	}, nil
}

func (b *BrowserAutomation) Close() error {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			log.Printf("Error closing browser: %v", err)
		}
	}
	if b.playwright != nil {
		if err := b.playwright.Stop(); err != nil {
			log.Printf("Error stopping playwright: %v", err)
		}
	}
	return nil
}

// NewDriver creates an isolated browser context for one application attempt.
func (b *BrowserAutomation) NewDriver() (ApplicationDriver, error) {
	browserContext, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %v", err)
	}
	page, err := browserContext.NewPage()
	if err != nil {
		browserContext.Close()
		return nil, fmt.Errorf("could not create page: %v", err)
	}

	return &playwrightDriver{
		browserContext: browserContext,
		page:           page,
		classifier:     b.classifier,
		executor:       b.executor,
		screenshots:    b.screenshots,
	}, nil
}

// RunApplication drives one job application synchronously from navigation to
// terminal state. This is the unit of work the bulk runner repeats per URL.
func (b *BrowserAutomation) RunApplication(ctx context.Context, jobURL string, profile *models.ApplicantProfile, resumePath, coverLetterPath string) error {
	driver, err := b.NewDriver()
	if err != nil {
		return err
	}

	session := NewAutomationSession(driver, jobURL, profile, resumePath, coverLetterPath, b.sessionOpts)
	session.Start(ctx)
	<-session.Done()

	snapshot := session.Snapshot()
	if snapshot.State != StateSubmitted {
		return fmt.Errorf("application not submitted: %s", snapshot.Message)
	}
	return nil
}

type playwrightDriver struct {
	browserContext playwright.BrowserContext
	page           playwright.Page
	loginPage      playwright.Page
	classifier     *FieldClassifier
	executor       *FillExecutor
	screenshots    *ScreenshotService
}

func (d *playwrightDriver) Navigate(jobURL string) error {
	log.Printf("Navigating to job page: %s", jobURL)
	_, err := d.page.Goto(jobURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(30000),
	})
	if err != nil {
		return fmt.Errorf("could not load job page: %v", err)
	}
	return nil
}

func (d *playwrightDriver) RequiresLogin() (bool, error) {
	for _, selector := range loginIndicators {
		visible, err := d.page.Locator(selector).First().IsVisible()
		if err != nil {
			continue
		}
		if visible {
			log.Printf("Login indicator found: %s", selector)
			return true, nil
		}
	}
	return false, nil
}

// IsLoggedIn re-checks the automated context. The page is considered logged
// in once no login indicator remains visible.
func (d *playwrightDriver) IsLoggedIn() (bool, error) {
	if _, err := d.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return false, fmt.Errorf("could not reload page: %v", err)
	}
	requiresLogin, err := d.RequiresLogin()
	if err != nil {
		return false, err
	}
	return !requiresLogin, nil
}

// OpenLoginWindow opens the job URL in a second page for manual credential
// entry. Useful with HEADLESS=false, where the window is visible to the
// user; polling happens against the automated page regardless.
func (d *playwrightDriver) OpenLoginWindow(jobURL string) error {
	loginPage, err := d.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("could not open login window: %v", err)
	}
	d.loginPage = loginPage
	if _, err := loginPage.Goto(jobURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("could not load login page: %v", err)
	}
	return nil
}

// FillForm runs the classifier, stages file uploads, and executes the fill
// pass against the detected fields.
func (d *playwrightDriver) FillForm(profile *models.ApplicantProfile, resumePath, coverLetterPath string) (*FillResult, error) {
	fields := d.classifier.DetectFields(d.page)
	if len(fields) == 0 {
		return nil, fmt.Errorf("could not detect form on page")
	}

	d.stageFileUploads(fields, resumePath, coverLetterPath)

	mapping := BuildProfileMapping(profile)
	result := d.executor.FillAll(fields, mapping)
	return result, nil
}

// stageFileUploads attaches the staged resume and cover letter to detected
// file inputs before the fill pass runs.
func (d *playwrightDriver) stageFileUploads(fields []DetectedField, resumePath, coverLetterPath string) {
	for _, field := range fields {
		if field.Category != CategoryFile {
			continue
		}
		context := strings.ToLower(field.Label + " " + field.Identifier)

		path := resumePath
		if coverLetterPath != "" && strings.Contains(context, "cover") {
			path = coverLetterPath
		}
		if path == "" {
			continue
		}
		if err := field.Element.SetInputFiles(path); err != nil {
			log.Printf("WARNING: file upload failed for %q: %v", field.Label, err)
		} else {
			log.Printf("✓ Attached %s to %q", path, field.Label)
		}
	}
}

func (d *playwrightDriver) Submit() error {
	log.Println("=== Looking for submit button ===")
	for _, selector := range submitSelectors {
		btn := d.page.Locator(selector).First()
		count, err := btn.Count()
		if err != nil || count == 0 {
			continue
		}
		disabled, _ := btn.IsDisabled()
		if disabled {
			continue
		}
		btn.ScrollIntoViewIfNeeded()
		if err := btn.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(5000),
		}); err != nil {
			log.Printf("Submit click failed for %q: %v", selector, err)
			continue
		}
		text, _ := btn.TextContent()
		log.Printf("✓ Clicked submit button: %q", strings.TrimSpace(text))
		return nil
	}
	return fmt.Errorf("could not find submit button")
}

func (d *playwrightDriver) CaptureScreenshot(event string) (string, error) {
	return d.screenshots.Capture(d.page, event)
}

func (d *playwrightDriver) Teardown() error {
	if d.loginPage != nil {
		d.loginPage.Close()
	}
	return d.browserContext.Close()
}
