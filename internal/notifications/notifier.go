package notifications

import "context"

type WelcomeInput struct {
	Email string
	Name  string
	Role  string
}

type RegistrationConfirmationInput struct {
	Email          string
	Name           string
	EventTitle     string
	RegistrationID string
}

// Notifier is the outbound-mail seam. Sends are synchronous and best effort:
// a failing provider must never fail the request that triggered it.
type Notifier interface {
	SendWelcome(ctx context.Context, input WelcomeInput) error
	SendRegistrationConfirmation(ctx context.Context, input RegistrationConfirmationInput) error
}
