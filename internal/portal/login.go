package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/pkg/model"
)

// RequestOTP validates email, applies the per-email request throttle and
// asks the backend to send a one-time code. It returns the normalized email.
func (s *Service) RequestOTP(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if err := validateVar(s.validate, "email", email, "required,email"); err != nil {
		return "", err
	}

	since := s.now().Add(-s.config.OTPWindow)
	n, err := s.otp.CountOTPRequests(ctx, email, since)
	if err != nil {
		return "", fmt.Errorf("count otp requests: %w", err)
	}
	if s.config.OTPMaxRequests > 0 && n >= s.config.OTPMaxRequests {
		s.logger.Warn("otp request throttled", "email", logging.MaskEmail(email), "requests", n)
		return "", ErrRateLimited
	}
	if err := s.otp.RecordOTPRequest(ctx, email, s.now()); err != nil {
		return "", fmt.Errorf("record otp request: %w", err)
	}

	if err := s.backend.RequestOTP(ctx, email); err != nil {
		return "", fmt.Errorf("request otp: %w", err)
	}
	s.logger.Info("otp requested", "email", logging.MaskEmail(email))
	return email, nil
}

// VerifyOTP checks code with the backend and returns the resolved identity.
// Failures are summed over every challenge inside the OTP window, so
// requesting a fresh code does not lift a lockout; it ends when the window
// passes or a later success clears it.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*model.Identity, error) {
	email = normalizeEmail(email)
	if err := validateVar(s.validate, "email", email, "required,email"); err != nil {
		return nil, err
	}
	if err := validateVar(s.validate, "code", code, "required,numeric,min=4,max=8"); err != nil {
		return nil, err
	}

	since := s.now().Add(-s.config.OTPWindow)
	failures, err := s.otp.OTPFailures(ctx, email, since)
	if err != nil {
		return nil, fmt.Errorf("count otp failures: %w", err)
	}
	if failures >= s.config.MaxVerifyAttempts {
		s.logger.Warn("otp verification locked", "email", logging.MaskEmail(email), "failures", failures)
		return nil, ErrRateLimited
	}

	ident, err := s.backend.VerifyOTP(ctx, email, code)
	if err != nil {
		if backend.IsUnauthorized(err) {
			n, ferr := s.recordFailure(ctx, email, since)
			if ferr != nil {
				s.logger.Error("record otp failure", "error", ferr)
			}
			s.logger.Warn("otp rejected", "email", logging.MaskEmail(email), "failures", n)
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	if err := s.otp.ClearOTPChallenges(ctx, email); err != nil {
		s.logger.Error("clear otp challenges", "error", err)
	}
	if s.admins.IsAdmin(ident.Email) {
		ident.Role = model.RoleAdmin
	}
	s.logger.Info("login verified", "email", logging.MaskEmail(ident.Email), "role", ident.Role)
	return ident, nil
}

// recordFailure counts a rejected code. Attempts without a prior request
// open a challenge so that guessing is throttled as well.
func (s *Service) recordFailure(ctx context.Context, email string, since time.Time) (int, error) {
	n, err := s.otp.RecordOTPFailure(ctx, email, since)
	if err != nil || n > 0 {
		return n, err
	}
	if err := s.otp.RecordOTPRequest(ctx, email, s.now()); err != nil {
		return 0, err
	}
	return s.otp.RecordOTPFailure(ctx, email, since)
}
