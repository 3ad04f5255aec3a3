package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// northAmericaPrefix is the transport-form prefix of +1 destinations.
const northAmericaPrefix = "001"

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// NexmoConfig holds credentials and endpoint settings for the Nexmo SMS API.
type NexmoConfig struct {
	APIKey            string
	APISecret         string
	Domain            string // e.g. rest.nexmo.com
	Endpoint          string // e.g. sms/json
	SSL               bool
	LongVirtualNumber string // sender used for North American destinations
	DLRURL            string // when set, delivery receipts are requested
	DevelopmentMode   bool   // never contact the provider, always succeed
}

type NexmoSMSProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	cfg        NexmoConfig
}

func NewNexmoSMSProvider(logger *slog.Logger, cfg NexmoConfig, httpClient *http.Client) *NexmoSMSProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &NexmoSMSProvider{
		logger:     logger.With("provider", "nexmo"),
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// NexmoSendResponse is the body returned by the sms/json endpoint.
// Long texts are split by the provider and acknowledged per segment.
type NexmoSendResponse struct {
	MessageCount string               `json:"message-count"`
	Messages     []NexmoMessageStatus `json:"messages"`
}

type NexmoMessageStatus struct {
	Status    *string `json:"status"`
	MessageID string  `json:"message-id,omitempty"`
	To        string  `json:"to,omitempty"`
	ErrorText string  `json:"error-text,omitempty"`
}

func (p *NexmoSMSProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	dispatchID := uuid.NewString()
	to := details.Recipient.Transport()
	logger := p.logger.With("dispatch_id", dispatchID, "to", to)

	if p.cfg.DevelopmentMode {
		logger.InfoContext(ctx, "Development mode, SMS not sent", "sender", details.Sender, "text", details.Content)
		providerSendsCounter.WithLabelValues(p.GetName(), "dev_mode").Inc()
		return &SendResponseDetails{
			DispatchID:     dispatchID,
			IsSuccess:      true,
			ProviderStatus: "DEVELOPMENT_MODE",
		}, nil
	}

	reqURL := p.requestURL(details.Sender, to, details.Content)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create Nexmo HTTP request", "error", err)
		return nil, fmt.Errorf("%w: creating request: %v", ErrSendFailed, err)
	}

	timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(p.GetName()))
	httpResp, err := p.httpClient.Do(httpReq)
	timer.ObserveDuration()
	if err != nil {
		logger.ErrorContext(ctx, "Failed to send request to Nexmo", "error", err)
		providerSendsCounter.WithLabelValues(p.GetName(), "transport_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read Nexmo response body", "status_code", httpResp.StatusCode, "error", err)
		providerSendsCounter.WithLabelValues(p.GetName(), "transport_error").Inc()
		return nil, fmt.Errorf("%w: reading response: %v", ErrSendFailed, err)
	}
	logger.DebugContext(ctx, "Received HTTP response from Nexmo", "status_code", httpResp.StatusCode, "body", string(body))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		errMsg := fmt.Sprintf("Nexmo API error: status %d", httpResp.StatusCode)
		logger.ErrorContext(ctx, "Nexmo send failed", "status_code", httpResp.StatusCode)
		providerSendsCounter.WithLabelValues(p.GetName(), "transport_error").Inc()
		return &SendResponseDetails{
			DispatchID:     dispatchID,
			ProviderStatus: fmt.Sprintf("HTTP_%d", httpResp.StatusCode),
			ErrorMessage:   errMsg,
		}, fmt.Errorf("%w: %s", ErrSendFailed, errMsg)
	}

	return p.aggregate(ctx, logger, dispatchID, body)
}

// aggregate folds per-segment statuses into one outcome. Every segment must
// report status "0".
func (p *NexmoSMSProvider) aggregate(ctx context.Context, logger *slog.Logger, dispatchID string, body []byte) (*SendResponseDetails, error) {
	badResponse := func(reason string) (*SendResponseDetails, error) {
		logger.ErrorContext(ctx, "Unexpected Nexmo response", "reason", reason, "body", string(body))
		providerSendsCounter.WithLabelValues(p.GetName(), "bad_response").Inc()
		return &SendResponseDetails{
			DispatchID:     dispatchID,
			ProviderStatus: "BAD_RESPONSE",
			ErrorMessage:   reason,
		}, fmt.Errorf("%w: %s", ErrSendFailed, reason)
	}

	var resp NexmoSendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return badResponse("response is not valid JSON: " + err.Error())
	}
	if len(resp.Messages) == 0 {
		return badResponse("response has no messages")
	}

	statuses := make([]string, 0, len(resp.Messages))
	success := true
	for i, m := range resp.Messages {
		if m.Status == nil {
			return badResponse(fmt.Sprintf("message %d has no status", i))
		}
		statuses = append(statuses, *m.Status)
		providerSegmentsCounter.WithLabelValues(p.GetName(), *m.Status).Inc()
		if *m.Status != "0" {
			success = false
		}
	}

	details := &SendResponseDetails{
		DispatchID:      dispatchID,
		IsSuccess:       success,
		ProviderStatus:  strings.Join(statuses, ","),
		SegmentStatuses: statuses,
	}

	if !success {
		details.ErrorMessage = "provider rejected one or more segments"
		logger.ErrorContext(ctx, "Nexmo rejected message", "segments", len(statuses), "statuses", statuses, "body", string(body))
		providerSendsCounter.WithLabelValues(p.GetName(), "rejected").Inc()
		return details, fmt.Errorf("%w: segment statuses %s", ErrSendFailed, details.ProviderStatus)
	}

	if len(statuses) > 1 {
		logger.WarnContext(ctx, "Message was sent in multiple segments", "segments", len(statuses))
	}
	logger.InfoContext(ctx, "Successfully sent SMS via Nexmo", "segments", len(statuses))
	providerSendsCounter.WithLabelValues(p.GetName(), "success").Inc()
	return details, nil
}

// requestURL builds scheme://domain/endpoint?query for one message.
func (p *NexmoSMSProvider) requestURL(sender, to, text string) string {
	if p.cfg.LongVirtualNumber != "" && strings.HasPrefix(to, northAmericaPrefix) {
		sender = p.cfg.LongVirtualNumber
	}

	q := url.Values{}
	q.Set("api_key", p.cfg.APIKey)
	q.Set("api_secret", p.cfg.APISecret)
	q.Set("from", sender)
	q.Set("to", to)
	q.Set("text", strings.ToValidUTF8(text, "?"))
	q.Set("type", "text")
	if p.cfg.DLRURL != "" {
		q.Set("status-report-req", "1")
	}

	scheme := "http"
	if p.cfg.SSL {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     p.cfg.Domain,
		Path:     "/" + strings.TrimPrefix(p.cfg.Endpoint, "/"),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (p *NexmoSMSProvider) GetName() string {
	return "nexmo"
}
