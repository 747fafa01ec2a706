package delivery

import (
	"context"
	"fmt"

	"github.com/frahmantamala/training-identity/internal/auth"
)

func verificationMail(msg auth.VerificationMessage) Mail {
	return Mail{
		To:      msg.To,
		Subject: "Verify your email address",
		Body: fmt.Sprintf("Hello %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nIf you did not sign up, ignore this message.\n",
			msg.Name, msg.URL),
	}
}

func otpMail(msg auth.OTPMessage) Mail {
	return Mail{
		To:      msg.To,
		Subject: "Your one-time code",
		Body: fmt.Sprintf("Hello %s,\n\nYour one-time code is %s. It expires in 5 minutes.\n",
			msg.Name, msg.Code),
	}
}

func passwordResetMail(msg auth.PasswordResetMessage) Mail {
	return Mail{
		To:      msg.To,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password:\n\n%s\n\nIf you did not ask for a reset, ignore this message.\n",
			msg.Name, msg.URL),
	}
}

// DirectNotifier mails synchronously from the request goroutine.
type DirectNotifier struct {
	mailer Mailer
}

func NewDirectNotifier(mailer Mailer) *DirectNotifier {
	return &DirectNotifier{mailer: mailer}
}

func (n *DirectNotifier) SendVerification(ctx context.Context, msg auth.VerificationMessage) error {
	return n.mailer.Send(ctx, verificationMail(msg))
}

func (n *DirectNotifier) SendOTP(ctx context.Context, msg auth.OTPMessage) error {
	return n.mailer.Send(ctx, otpMail(msg))
}

func (n *DirectNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	return n.mailer.Send(ctx, passwordResetMail(msg))
}
