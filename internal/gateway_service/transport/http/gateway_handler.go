package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/app"
	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
)

// ValidationPath is the number validation endpoint.
const ValidationPath = "/validate_number/"

// Gateway is the use-case surface the handlers depend on.
type Gateway interface {
	ValidateNumber(ctx context.Context, number *string, hints domain.RequestHints) (app.ValidationResult, error)
	SendRouteMessage(ctx context.Context, route domain.MessageRoute, receiver *string, hints domain.RequestHints) (app.SendResult, error)
}

type GatewayHandler struct {
	gateway Gateway
	routes  []domain.MessageRoute
	logger  *slog.Logger
}

func NewGatewayHandler(gateway Gateway, routes []domain.MessageRoute, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gateway,
		routes:  routes,
		logger:  logger.With("handler", "gateway"),
	}
}

// RegisterRoutes registers the validation endpoint and one send endpoint per message route.
func (h *GatewayHandler) RegisterRoutes(r chi.Router) {
	r.Get(ValidationPath, h.handleValidateNumber)
	for _, route := range h.routes {
		r.Get(route.Path, h.sendMessageHandler(route))
	}
}

func (h *GatewayHandler) handleValidateNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chimiddleware.GetReqID(ctx))

	res, err := h.gateway.ValidateNumber(ctx, queryParam(r, "number"), requestHints(r))
	if err != nil {
		logger.ErrorContext(ctx, "Number validation failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := GatewayResponse{Status: statusOK}
	switch {
	case res.Code != domain.ErrCodeNone:
		resp = GatewayResponse{Status: statusError, Error: string(res.Code)}
	case res.Number != nil:
		resp.Number = res.Number.Display()
	default:
		resp.Number = false
	}
	writeJSON(w, r, logger, resp)
}

// sendMessageHandler returns the handler for one configured message route.
func (h *GatewayHandler) sendMessageHandler(route domain.MessageRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := h.logger.With("request_id", chimiddleware.GetReqID(ctx), "route", route.Path)

		res, err := h.gateway.SendRouteMessage(ctx, route, queryParam(r, "receiver"), requestHints(r))
		if err != nil {
			logger.ErrorContext(ctx, "Send message failed", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var resp GatewayResponse
		switch res.Code {
		case domain.ErrCodeNone:
			resp = GatewayResponse{Status: statusOK, Message: messageSent}
		case domain.ErrCodeNexmoError:
			resp = GatewayResponse{Status: statusError, Error: string(res.Code), Message: messageNexmoFailed}
		default:
			resp = GatewayResponse{Status: statusError, Error: string(res.Code)}
		}
		if res.Number != nil {
			resp.Number = res.Number.Display()
		}
		writeJSON(w, r, logger, resp)
	}
}

// queryParam returns the last value of a query parameter with surrounding
// whitespace removed, or nil if the parameter is absent or blank.
func queryParam(r *http.Request, name string) *string {
	values := r.URL.Query()[name]
	if len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[len(values)-1])
	if v == "" {
		return nil
	}
	return &v
}

func requestHints(r *http.Request) domain.RequestHints {
	return domain.RequestHints{
		CountryParam:   strings.TrimSpace(r.URL.Query().Get("country")),
		RemoteAddr:     clientIP(r),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already applied X-Real-IP / X-Forwarded-For.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
