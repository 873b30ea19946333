// Package otp verifies a visitor's mobile number with a one-time password.
package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/ticker"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"go.uber.org/zap"
)

const (
	msgInvalidMobile = "Please enter a valid mobile number"
	msgInvalidCode   = "Please enter a valid 6-digit OTP"
	msgSent          = "OTP sent successfully!"
	msgSendFailed    = "Error sending OTP"
	msgVerified      = "OTP verified successfully!"
	msgRejected      = "Invalid OTP"
	msgVerifyFailed  = "Error verifying OTP"
)

// ErrCooldown is returned by Resend while the previous code is still fresh.
var ErrCooldown = errors.New("otp resend cooling down")

// API is the backend surface for one-time passwords. *vmsone.Client implements it.
type API interface {
	SendOTP(ctx context.Context, mobile string) (*vmsone.Response, error)
	VerifyOTP(ctx context.Context, mobile, otp string) (*vmsone.Response, error)
}

// Result is the outcome shown to the visitor.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Service tracks one OTP exchange and its resend countdown.
type Service struct {
	api      API
	sched    *ticker.Scheduler
	cooldown time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	mobile    string
	remaining int // whole seconds until resend is allowed
	stop      func()
	onTick    func(remaining int)
}

func New(api API, sched *ticker.Scheduler, cooldown time.Duration, logger *zap.Logger) *Service {
	if cooldown <= 0 {
		cooldown = constants.OTPResendCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, sched: sched, cooldown: cooldown, logger: logger}
}

// OnTick registers fn to be called with the remaining seconds after each countdown step.
func (s *Service) OnTick(fn func(remaining int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// Send requests a code for mobile and starts the resend countdown on success.
func (s *Service) Send(ctx context.Context, mobile string) (Result, error) {
	if len(mobile) < constants.MinMobileLength {
		err := kerrors.Invalid("mobile", msgInvalidMobile)
		return Result{Message: msgInvalidMobile}, err
	}

	if _, err := s.api.SendOTP(ctx, mobile); err != nil {
		s.logger.Warn("failed to send OTP", zap.Error(err))
		return Result{Message: failureMessage(err, msgSendFailed)}, nil
	}

	s.mu.Lock()
	s.mobile = mobile
	s.mu.Unlock()
	s.startCountdown()

	return Result{OK: true, Message: msgSent}, nil
}

// Resend sends a new code to the last mobile once the countdown has finished.
func (s *Service) Resend(ctx context.Context) (Result, error) {
	s.mu.Lock()
	mobile, remaining := s.mobile, s.remaining
	s.mu.Unlock()

	if mobile == "" {
		err := kerrors.Invalid("mobile", msgInvalidMobile)
		return Result{Message: msgInvalidMobile}, err
	}
	if remaining > 0 {
		return Result{Message: fmt.Sprintf("Resend OTP in %ds", remaining)}, ErrCooldown
	}
	return s.Send(ctx, mobile)
}

// Verify checks a 6-digit code against the last mobile, or mobile when given.
func (s *Service) Verify(ctx context.Context, mobile, code string) (Result, error) {
	if !validCode(code) {
		err := kerrors.Invalid("otp", msgInvalidCode)
		return Result{Message: msgInvalidCode}, err
	}
	if mobile == "" {
		s.mu.Lock()
		mobile = s.mobile
		s.mu.Unlock()
	}

	if _, err := s.api.VerifyOTP(ctx, mobile, code); err != nil {
		var se *kerrors.ServerError
		if errors.As(err, &se) {
			return Result{Message: failureMessage(err, msgRejected)}, nil
		}
		return Result{Message: msgVerifyFailed}, nil
	}

	s.Close()
	return Result{OK: true, Message: msgVerified}, nil
}

// Remaining returns the seconds left until Resend is allowed.
func (s *Service) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Close stops the countdown.
func (s *Service) Close() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.remaining = 0
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *Service) startCountdown() {
	s.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = int(s.cooldown / time.Second)

	var stop func()
	stop = s.sched.Every(time.Second, func(time.Time) {
		s.mu.Lock()
		if s.remaining > 0 {
			s.remaining--
		}
		remaining, onTick := s.remaining, s.onTick
		done := remaining == 0
		if done {
			s.stop = nil
		}
		s.mu.Unlock()

		if onTick != nil {
			onTick(remaining)
		}
		if done {
			stop()
		}
	})
	s.stop = stop
}

func validCode(code string) bool {
	if len(code) != constants.OTPLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func failureMessage(err error, fallback string) string {
	var se *kerrors.ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
