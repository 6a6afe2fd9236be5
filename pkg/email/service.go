package email

import (
	"context"
	"fmt"
	"strings"
)

// Service manages templates and sends rendered messages through the
// configured Sender.
type Service struct {
	store  *Store
	sender Sender
}

// NewService creates an email service
func NewService(store *Store, sender Sender) *Service {
	return &Service{store: store, sender: sender}
}

// Create adds a template with a unique name
func (s *Service) Create(ctx context.Context, name, subject, body string) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("email: template name is required")
	}

	existing, err := s.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrNameExists
	}

	t := &Template{Name: name, Subject: subject, Body: body}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get retrieves a template by name
func (s *Service) Get(ctx context.Context, name string) (*Template, error) {
	t, err := s.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns all templates
func (s *Service) List(ctx context.Context) ([]*Template, error) {
	return s.store.List(ctx)
}

// Update replaces a template's subject and body
func (s *Service) Update(ctx context.Context, name, subject, body string) (*Template, error) {
	if err := s.store.Update(ctx, name, subject, body); err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

// Delete removes a template
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// Preview renders a template against the given data without sending
func (s *Service) Preview(ctx context.Context, name string, data map[string]string) (*RenderedMessage, error) {
	t, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	rendered := t.Render(data)
	return &rendered, nil
}

// Send renders a template and delivers it to the recipient
func (s *Service) Send(ctx context.Context, name, to string, data map[string]string) error {
	t, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	rendered := t.Render(data)
	return s.sender.Send(ctx, to, rendered.Subject, rendered.Body)
}
