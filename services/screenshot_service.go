package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ScreenshotService captures the per-session audit trail: a full-page
// screenshot per lifecycle event, uploaded to S3 when configured and saved
// under ./static otherwise.
type ScreenshotService struct {
	S3Service *S3Service
	localDir  string
}

func NewScreenshotService() *ScreenshotService {
	s3Service, err := NewS3Service()
	if err != nil {
		log.Printf("Warning: S3 not available, screenshots saved locally: %v", err)
		s3Service = nil
	}
	return &ScreenshotService{
		S3Service: s3Service,
		localDir:  "./static",
	}
}

// Capture takes a full-page screenshot tagged with the lifecycle event
// ("pre_submit", "confirmation", "error") and returns the storage key or
// local path.
func (s *ScreenshotService) Capture(page playwright.Page, event string) (string, error) {
	screenshot, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %v", err)
	}

	filename := fmt.Sprintf("%s_%d.png", event, time.Now().Unix())

	if s.S3Service != nil {
		key := "screenshots/" + filename
		if err := s.S3Service.UploadBytes(screenshot, key, "image/png"); err != nil {
			log.Printf("WARNING: screenshot upload failed, falling back to local: %v", err)
		} else {
			return key, nil
		}
	}

	if err := os.MkdirAll(s.localDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %v", err)
	}
	localPath := filepath.Join(s.localDir, filename)
	if err := os.WriteFile(localPath, screenshot, 0o644); err != nil {
		return "", fmt.Errorf("failed to save screenshot locally: %v", err)
	}
	log.Printf("Screenshot saved locally: %s", localPath)
	return localPath, nil
}
