package http

// GatewayResponse is the JSON body of every gateway endpoint.
// Number is a display string, or false when validation failed.
type GatewayResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Number  any    `json:"number,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"

	messageSent        = "Message sent"
	messageNexmoFailed = "Nexmo Service Error"
)
