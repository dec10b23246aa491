package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the log. Stands in until a real mail
// provider is wired behind the Notifier interface.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	n.log.InfoContext(ctx, "notification.welcome",
		"email", in.Email, "name", in.Name, "role", in.Role)
	return nil
}

func (n *LogNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmationInput) error {
	n.log.InfoContext(ctx, "notification.registration_confirmation",
		"email", in.Email, "name", in.Name, "event", in.EventTitle, "registration", in.RegistrationID)
	return nil
}
