package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"time"
)

// EmailNotificationService delivers the per-session audit notification.
// It is invoked exactly once per terminal session state.
type EmailNotificationService struct {
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewEmailNotificationService() *EmailNotificationService {
	return &EmailNotificationService{
		smtpHost:     os.Getenv("SMTP_HOST"),
		smtpPort:     os.Getenv("SMTP_PORT"),
		smtpUsername: os.Getenv("SMTP_USERNAME"),
		smtpPassword: os.Getenv("SMTP_PASSWORD"),
		fromEmail:    os.Getenv("FROM_EMAIL"),
	}
}

// SendSessionOutcome notifies the applicant about one finished session.
func (s *EmailNotificationService) SendSessionOutcome(userEmail, userName string, snapshot SessionSnapshot) error {
	template := s.buildTemplate(userName, snapshot)
	return s.send(userEmail, template)
}

func (s *EmailNotificationService) buildTemplate(userName string, snapshot SessionSnapshot) EmailTemplate {
	switch snapshot.State {
	case StateSubmitted:
		filled := 0
		if snapshot.FillResult != nil {
			filled = len(snapshot.FillResult.Filled)
		}
		return EmailTemplate{
			Subject: "✅ Application Submitted",
			Body: fmt.Sprintf(`
Hello %s,

Your application was submitted successfully.

Job URL: %s
Fields filled automatically: %d
Submitted: %s

We've kept an audit screenshot on file.

Best regards,
AutoApply
			`, userName, snapshot.JobURL, filled, time.Now().Format("January 2, 2006 at 3:04 PM")),
		}
	default:
		failed := 0
		if snapshot.FillResult != nil {
			failed = len(snapshot.FillResult.Failed)
		}
		return EmailTemplate{
			Subject: "❌ Application Needs Attention",
			Body: fmt.Sprintf(`
Hello %s,

We could not complete your application automatically.

Job URL: %s
Reason: %s
Fields that could not be filled: %d

You can finish the application manually; the saved screenshot shows how far
the automation got.

Best regards,
AutoApply
			`, userName, snapshot.JobURL, snapshot.Message, failed),
		}
	}
}

func (s *EmailNotificationService) send(to string, template EmailTemplate) error {
	if s.smtpHost == "" || s.fromEmail == "" {
		log.Printf("SMTP not configured - would have emailed %s: %s", to, template.Subject)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.fromEmail, to, template.Subject, template.Body)

	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)
	addr := s.smtpHost + ":" + s.smtpPort
	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send notification email: %v", err)
	}
	log.Printf("Notification email sent to %s", to)
	return nil
}
