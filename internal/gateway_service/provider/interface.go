package provider

import (
	"context"
	"errors"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
)

// ErrSendFailed marks a send the provider did not accept in full.
var ErrSendFailed = errors.New("sms provider send failed")

// SendRequestDetails holds one outbound message.
type SendRequestDetails struct {
	Sender    string
	Recipient domain.PhoneNumber
	Content   string
}

// SendResponseDetails is the aggregated outcome of a send.
type SendResponseDetails struct {
	DispatchID      string   // our correlation id for logs
	IsSuccess       bool     // every segment accepted
	ProviderStatus  string
	SegmentStatuses []string // one per segment, in provider order
	ErrorMessage    string
}

// SMSSenderProvider sends a message through an external SMS provider.
// On failure Send returns an error wrapping ErrSendFailed and, when the
// provider answered, the details of its answer.
type SMSSenderProvider interface {
	Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error)
	GetName() string
}
