package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
	"github.com/nellessen/nexmo-download-link/internal/gateway_service/provider"
)

// NumberResolver turns raw input into a PhoneNumber.
type NumberResolver interface {
	Resolve(ctx context.Context, raw string, hints domain.RequestHints) (domain.PhoneNumber, error)
}

// Limiter decides whether a client may call a scope again.
type Limiter interface {
	Allow(ctx context.Context, scope, clientAddr string, policy domain.LimitPolicy) (bool, error)
}

// ValidationResult is the outcome of a number validation. Number is nil when
// the input could not be parsed; that is not an error.
type ValidationResult struct {
	Code   domain.ErrorCode
	Number *domain.PhoneNumber
}

// SendResult is the outcome of a send request. Number is set once the receiver
// has been resolved.
type SendResult struct {
	Code   domain.ErrorCode
	Number *domain.PhoneNumber
}

// GatewayService sequences rate limiting, number resolution and dispatch.
type GatewayService struct {
	limiter  Limiter
	resolver NumberResolver
	sender   provider.SMSSenderProvider
	limits   domain.LimitPolicy
	logger   *slog.Logger
}

func NewGatewayService(
	limiter Limiter,
	resolver NumberResolver,
	sender provider.SMSSenderProvider,
	limits domain.LimitPolicy,
	logger *slog.Logger,
) *GatewayService {
	return &GatewayService{
		limiter:  limiter,
		resolver: resolver,
		sender:   sender,
		limits:   limits,
		logger:   logger.With("component", "gateway_service"),
	}
}

// ValidateNumber checks the quota of the validation scope and resolves number.
// A nil number means the parameter was missing. Only infrastructure failures
// are returned as errors.
func (s *GatewayService) ValidateNumber(ctx context.Context, number *string, hints domain.RequestHints) (ValidationResult, error) {
	ok, err := s.allow(ctx, domain.ValidationScope, hints)
	if err != nil {
		requestsHandledCounter.WithLabelValues("validate_number", "infrastructure_error").Inc()
		return ValidationResult{}, err
	}
	if !ok {
		return s.validated(ValidationResult{Code: domain.ErrCodeLimitAcceded})
	}
	if number == nil {
		return s.validated(ValidationResult{Code: domain.ErrCodeNumberMissing})
	}

	s.logger.DebugContext(ctx, "Received number for validation", "number", *number)
	resolved, err := s.resolver.Resolve(ctx, *number, hints)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidPhoneNumber) {
			return ValidationResult{}, err
		}
		return s.validated(ValidationResult{})
	}
	return s.validated(ValidationResult{Number: &resolved})
}

// SendRouteMessage sends the route's fixed message to receiver. A nil receiver
// means the parameter was missing.
func (s *GatewayService) SendRouteMessage(ctx context.Context, route domain.MessageRoute, receiver *string, hints domain.RequestHints) (SendResult, error) {
	ok, err := s.allow(ctx, route.Scope(), hints)
	if err != nil {
		requestsHandledCounter.WithLabelValues("send_message", "infrastructure_error").Inc()
		return SendResult{}, err
	}
	if !ok {
		return s.sent(SendResult{Code: domain.ErrCodeLimitAcceded})
	}
	if receiver == nil {
		return s.sent(SendResult{Code: domain.ErrCodeReceiverMissing})
	}

	resolved, err := s.resolver.Resolve(ctx, *receiver, hints)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidPhoneNumber) {
			return SendResult{}, err
		}
		return s.sent(SendResult{Code: domain.ErrCodeReceiverValidation})
	}

	resp, err := s.sender.Send(ctx, provider.SendRequestDetails{
		Sender:    route.Sender,
		Recipient: resolved,
		Content:   route.Message,
	})
	if err != nil || resp == nil || !resp.IsSuccess {
		s.logger.ErrorContext(ctx, "Message dispatch failed", "route", route.Path, "number", resolved.Display(), "error", err)
		return s.sent(SendResult{Code: domain.ErrCodeNexmoError, Number: &resolved})
	}

	s.logger.InfoContext(ctx, "Message sent", "route", route.Path, "number", resolved.Display(), "dispatch_id", resp.DispatchID)
	return s.sent(SendResult{Number: &resolved})
}

func (s *GatewayService) allow(ctx context.Context, scope string, hints domain.RequestHints) (bool, error) {
	if !s.limits.Enabled() {
		return true, nil
	}
	return s.limiter.Allow(ctx, scope, hints.RemoteAddr, s.limits)
}

func (s *GatewayService) validated(res ValidationResult) (ValidationResult, error) {
	requestsHandledCounter.WithLabelValues("validate_number", resultLabel(res.Code)).Inc()
	return res, nil
}

func (s *GatewayService) sent(res SendResult) (SendResult, error) {
	requestsHandledCounter.WithLabelValues("send_message", resultLabel(res.Code)).Inc()
	return res, nil
}

func resultLabel(code domain.ErrorCode) string {
	if code == domain.ErrCodeNone {
		return "ok"
	}
	return string(code)
}
