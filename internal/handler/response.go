package handler

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope every API endpoint writes. Access denials that
// are part of normal operation (gate checks) still ride the success
// envelope; only transport and validation failures use the error form.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: statusSuccess, Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: statusError, Message: message}
}
