package notification

import (
	"context"
	"log"
	"sync"
)

// Intent is one queued notification: who to tell, with what template and
// parameters. Delivery channels (SMS, push) hang off the template name.
type Intent struct {
	Recipient string
	Template  string
	Params    map[string]string
}

// Sender delivers a single notification intent.
type Sender interface {
	Send(ctx context.Context, intent Intent) error
}

// Service fans notification intents out to a sender. Failures are logged
// and swallowed: notifications never fail the operation that produced them.
type Service struct {
	sender Sender

	mu   sync.Mutex
	sent []Intent
}

// NewService creates a notification service. A nil sender falls back to
// log-only delivery.
func NewService(sender Sender) *Service {
	if sender == nil {
		sender = logSender{}
	}
	return &Service{sender: sender}
}

// Notify records and dispatches one notification intent.
func (s *Service) Notify(ctx context.Context, recipient, template string, params map[string]string) {
	intent := Intent{Recipient: recipient, Template: template, Params: params}

	s.mu.Lock()
	s.sent = append(s.sent, intent)
	if len(s.sent) > maxRetained {
		s.sent = s.sent[len(s.sent)-maxRetained:]
	}
	s.mu.Unlock()

	if err := s.sender.Send(ctx, intent); err != nil {
		log.Printf("notification to %s (%s) failed: %v", recipient, template, err)
	}
}

// Recent returns the most recently dispatched intents, newest last.
func (s *Service) Recent() []Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Intent, len(s.sent))
	copy(out, s.sent)
	return out
}

const maxRetained = 256

type logSender struct{}

func (logSender) Send(_ context.Context, intent Intent) error {
	log.Printf("notify %s: %s %v", intent.Recipient, intent.Template, intent.Params)
	return nil
}
