package email

import "context"

// Provider sends outbound mail. Sends are best effort: callers log failures
// and never propagate them into payment state.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}
