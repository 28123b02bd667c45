package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront/internal/client"
	"storefront/internal/model"
)

const MinPasswordLength = 6

// AuthErrorInfo is what the auth error page shows for a failed email link.
type AuthErrorInfo struct {
	Message string `json:"message,omitempty"`
	// CanResend offers the resend-confirmation form.
	CanResend bool `json:"can_resend"`
	// Redirect is set when there is nothing to show.
	Redirect string `json:"redirect,omitempty"`
}

// ClassifyAuthError reads the error, error_code and error_description
// parameters the auth provider appends to redirect links.
func ClassifyAuthError(errParam, errorCode, errorDescription string) AuthErrorInfo {
	switch {
	case errorCode == "otp_expired":
		return AuthErrorInfo{
			Message:   "Your email verification link has expired. Please request a new one below.",
			CanResend: true,
		}
	case errParam != "":
		msg := errorDescription
		if msg == "" {
			msg = "An authentication error occurred"
		}
		return AuthErrorInfo{Message: msg, CanResend: true}
	}
	return AuthErrorInfo{Redirect: "/"}
}

// AccountService covers the password and confirmation email flows that run
// outside a signed-in session.
type AccountService interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, accessToken, password, confirm string) error
	ResendConfirmation(ctx context.Context, email string) error
}

type accountServiceImpl struct {
	auth    client.AuthClient
	baseURL string
	log     logrus.FieldLogger
}

func NewAccountService(auth client.AuthClient, baseURL string, log logrus.FieldLogger) AccountService {
	return &accountServiceImpl{
		auth:    auth,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

func (s *accountServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewValidationError("email", "Please enter your email address")
	}
	if err := s.auth.ResetPasswordForEmail(ctx, email, s.baseURL+"/reset-password"); err != nil {
		s.log.WithError(err).Warn("reset password email")
		return providerError(err, "Failed to send reset instructions")
	}
	return nil
}

func (s *accountServiceImpl) ResetPassword(ctx context.Context, accessToken, password, confirm string) error {
	if accessToken == "" {
		return model.NewValidationError("access_token", "Invalid or missing reset token. Please request a new password reset.")
	}
	if len(password) < MinPasswordLength {
		return model.NewValidationError("password", "Password must be at least 6 characters long")
	}
	if password != confirm {
		return model.NewValidationError("confirm_password", "Passwords do not match")
	}

	if _, err := s.auth.UpdatePassword(ctx, accessToken, password); err != nil {
		s.log.WithError(err).Warn("update password")
		return providerError(err, "Failed to update password")
	}
	return nil
}

func (s *accountServiceImpl) ResendConfirmation(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewValidationError("email", "Please enter your email address")
	}
	if err := s.auth.ResendSignup(ctx, email); err != nil {
		s.log.WithError(err).Warn("resend confirmation")
		return providerError(err, "Failed to resend confirmation email")
	}
	return nil
}

// providerError surfaces the provider's message, or fallback when it has
// none, as a form error.
func providerError(err error, fallback string) error {
	msg := client.ErrorMessage(err)
	if msg == "" {
		msg = fallback
	}
	return model.NewValidationError("", msg)
}
