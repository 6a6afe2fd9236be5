// Package email manages notification templates and their rendering. Delivery
// is behind the Sender interface; the default sender only logs, real
// transports plug in at assembly time.
package email

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/praxishq/praxis/pkg/observability"
)

var (
	// ErrNotFound means the template does not exist
	ErrNotFound = errors.New("email: template not found")

	// ErrNameExists means a template with that name already exists
	ErrNameExists = errors.New("email: template name already exists")
)

// Template is a named notification template. Subject and Body may contain
// {{placeholder}} tokens substituted at render time.
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{placeholder}} tokens from data. Tokens with no entry
// in data are left verbatim so a missing variable is visible in the output
// rather than silently blanked.
func Render(text string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := data[key]; ok {
			return value
		}
		return match
	})
}

// RenderedMessage is a template after placeholder substitution
type RenderedMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Render substitutes placeholders in both subject and body
func (t *Template) Render(data map[string]string) RenderedMessage {
	return RenderedMessage{
		Subject: Render(t.Subject, data),
		Body:    Render(t.Body, data),
	}
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes messages to the log instead of delivering them. The
// default in every environment without a mail transport configured.
type LogSender struct {
	Logger *observability.Logger
}

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.WithFields(map[string]interface{}{
		"to":      to,
		"subject": subject,
	}).Info("email delivery is not configured; logging message")
	return nil
}
