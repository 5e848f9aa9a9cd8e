// Package notify delivers lifecycle messages to applicants over SES email
// and, for booking confirmations, SNS SMS. Delivery is best effort: a failed
// send is logged and dropped, never bubbled back into the operation that
// triggered it.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
)

// SESService and SNSService cover the two AWS calls we make, so tests can
// substitute mocks.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

type Service struct {
	config    Config
	sesClient SESService
	snsClient SNSService
	log       logger.Logger
}

func NewService(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Service {
	return &Service{
		config:    cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		log:       log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

const (
	templateDecided            = "Your application {{applicationId}} for {{project}} is now {{status}}."
	templateBooked             = "Congratulations {{name}}, your {{flatType}} flat at {{project}} is booked. Price: {{price}}."
	templateWithdrawalApproved = "Your withdrawal request for application {{applicationId}} has been approved."
	templateWithdrawalRejected = "Your withdrawal request for application {{applicationId}} has been rejected."
)

// ApplicationDecided tells the applicant the manager's verdict.
func (s *Service) ApplicationDecided(ctx context.Context, u *models.User, a *models.Application) {
	body := renderTemplate(templateDecided, map[string]interface{}{
		"applicationId": a.ID,
		"project":       a.ProjectName,
		"status":        string(a.Status),
	})
	s.sendEmail(ctx, u, "Application update", body)
}

// BookingConfirmed sends the receipt summary over email and, when a phone
// number is on file, SMS.
func (s *Service) BookingConfirmed(ctx context.Context, u *models.User, r *models.BookingReceipt) {
	body := renderTemplate(templateBooked, map[string]interface{}{
		"name":     r.ApplicantName,
		"flatType": string(r.FlatType),
		"project":  r.ProjectName,
		"price":    formatCents(r.PriceCents),
	})
	s.sendEmail(ctx, u, "Flat booking confirmed", body)
	s.sendSMS(ctx, u, body)
}

// WithdrawalResolved reports the manager's ruling on a withdrawal request.
func (s *Service) WithdrawalResolved(ctx context.Context, u *models.User, a *models.Application, approved bool) {
	tmpl := templateWithdrawalRejected
	if approved {
		tmpl = templateWithdrawalApproved
	}
	body := renderTemplate(tmpl, map[string]interface{}{"applicationId": a.ID})
	s.sendEmail(ctx, u, "Withdrawal request update", body)
}

func (s *Service) sendEmail(ctx context.Context, u *models.User, subject, body string) {
	if !s.config.EmailEnabled || s.sesClient == nil || u == nil || u.Email == "" {
		return
	}
	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{u.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.config.FromEmail),
	})
	if err != nil {
		s.log.WithError(err).Error("email send failed", map[string]interface{}{
			"email": u.Email,
		})
	}
}

func (s *Service) sendSMS(ctx context.Context, u *models.User, message string) {
	if !s.config.SMSEnabled || s.snsClient == nil || u == nil || u.Phone == "" {
		return
	}
	_, err := s.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(u.Phone),
		Message:     aws.String(message),
	})
	if err != nil {
		s.log.WithError(err).Error("SMS send failed", map[string]interface{}{
			"phone": u.Phone,
		})
	}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("S$%d.%02d", cents/100, cents%100)
}

// renderTemplate substitutes {{key}} placeholders and strips any that have
// no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}
	return result
}

// Noop satisfies the lifecycle notification hooks without sending anything.
// Used when notifications are disabled in config.
type Noop struct{}

func (Noop) ApplicationDecided(context.Context, *models.User, *models.Application)       {}
func (Noop) BookingConfirmed(context.Context, *models.User, *models.BookingReceipt)      {}
func (Noop) WithdrawalResolved(context.Context, *models.User, *models.Application, bool) {}
