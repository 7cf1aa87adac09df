package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
)

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	client *resend.Client
}

// NewResendMailer creates a Mailer. baseURL overrides the API endpoint and
// may be empty.
func NewResendMailer(apiKey, baseURL string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key is required")
	}

	client := resend.NewClient(apiKey)
	if baseURL != "" {
		// request paths are resolved relative to the base, which needs the trailing slash
		u, err := url.Parse(baseURL + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid email base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendMailer{client: client}, nil
}

// Send dispatches one email and returns the provider message id.
func (m *ResendMailer) Send(ctx context.Context, email Email) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	})
	if err != nil {
		return "", &UpstreamError{Service: "resend", Err: err}
	}
	if sent == nil || sent.Id == "" {
		return "", &UpstreamError{Service: "resend", Detail: "response carried no message id"}
	}
	return sent.Id, nil
}
