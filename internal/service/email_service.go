package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesSender is the SES call the service needs
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends the teacher digest via Amazon SES
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug, appBaseURL: appBaseURL}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES region=%s from=%s", awsRegion, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

type digestData struct {
	TeacherName  string
	Pending      int
	Analytics    Analytics
	DashboardURL string
	Students     int
}

var digestHTML = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h1 style="color: #2e7d32;">Your EcoQuest class today</h1>
	<p>Hi {{.TeacherName}},</p>
	<p><strong>{{.Pending}}</strong> submission(s) are waiting for your review.</p>
	<table cellpadding="6">
		<tr><td>Beginner (0-100 points)</td><td>{{.Analytics.Beginner}}</td></tr>
		<tr><td>Intermediate (101-300 points)</td><td>{{.Analytics.Intermediate}}</td></tr>
		<tr><td>Advanced (300+ points)</td><td>{{.Analytics.Advanced}}</td></tr>
		<tr><td>Average points</td><td>{{printf "%.1f" .Analytics.AveragePoints}}</td></tr>
	</table>
	<p><a href="{{.DashboardURL}}">Open the dashboard</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email from EcoQuest. Please do not reply.</p>
</body>
</html>
`))

// SendDigest emails the pending count and class analytics to a teacher
func (s *EmailService) SendDigest(ctx context.Context, toEmail, toName string, dash *Dashboard) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): digest to %s", toEmail)
		return nil
	}

	data := digestData{
		TeacherName:  toName,
		Pending:      len(dash.Pending),
		Analytics:    dash.Analytics,
		DashboardURL: s.appBaseURL + "/teacher/dashboard",
		Students:     dash.Analytics.Total,
	}

	var html bytes.Buffer
	if err := digestHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("failed to render digest: %w", err)
	}

	text := fmt.Sprintf(`Hi %s,

%d submission(s) are waiting for your review.

Class of %d students:
- Beginner (0-100 points): %d
- Intermediate (101-300 points): %d
- Advanced (300+ points): %d
- Average points: %.1f

Open the dashboard: %s

---
This is an automated email from EcoQuest. Please do not reply.
`, toName, data.Pending, data.Students, data.Analytics.Beginner, data.Analytics.Intermediate,
		data.Analytics.Advanced, data.Analytics.AveragePoints, data.DashboardURL)

	subject := fmt.Sprintf("EcoQuest: %d submission(s) to review", data.Pending)
	return s.sendEmail(ctx, toEmail, subject, html.String(), text)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
