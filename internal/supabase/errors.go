package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAPI matches every *APIError via errors.Is
	ErrAPI = errors.New("supabase api error")
	// ErrPaymentDeclined is returned when the payment function answers success=false
	ErrPaymentDeclined = errors.New("payment failed")
)

// codeNoRows is PostgREST's code for a single-object request that matched nothing
const codeNoRows = "PGRST116"

// APIError is a non-2xx answer from the managed backend
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// Is makes errors.Is(err, ErrAPI) true for any APIError
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// UserMessage is the message shown to the user
func (e *APIError) UserMessage() string {
	return e.Message
}

// IsNoRows reports whether err is a single-object query that matched no row
func IsNoRows(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeNoRows
}

// errorBody covers the error shapes of GoTrue, PostgREST and edge functions
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
}

func parseAPIError(status int, payload []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(payload, &body); err == nil {
		for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if m != "" {
				apiErr.Message = m
				break
			}
		}
		// GoTrue sends a numeric code alongside error_code; PostgREST sends a string.
		if code, ok := body.Code.(string); ok {
			apiErr.Code = code
		}
		if apiErr.Code == "" {
			apiErr.Code = body.ErrorCode
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(payload))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
