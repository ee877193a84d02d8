package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// Response is the uniform envelope every call resolves to.
type Response[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data,omitempty"`
	Error     ErrorKind `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Failure builds the envelope for a failed call.
func Failure[T any](err error) *Response[T] {
	return &Response[T]{
		Success:   false,
		Error:     KindOf(err),
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}

type wireEnvelope struct {
	Success   *bool           `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeResponse[T any](body []byte, status int) (*Response[T], *Error) {
	resp := &Response[T]{Success: true, Timestamp: time.Now()}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return resp, nil
	}

	var env wireEnvelope
	if trimmed[0] == '{' && json.Unmarshal(trimmed, &env) == nil && env.Success != nil {
		if !*env.Success {
			return nil, newError(KindUnknown, status, errorMessage(env), nil)
		}
		resp.Message = env.Message
		if !env.Timestamp.IsZero() {
			resp.Timestamp = env.Timestamp
		}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &resp.Data); err != nil {
				return nil, newError(KindUnknown, status, "failed to parse response data", err)
			}
		}
		return resp, nil
	}

	if err := json.Unmarshal(trimmed, &resp.Data); err != nil {
		return nil, newError(KindUnknown, status, "failed to parse response body", err)
	}
	return resp, nil
}

// errorMessage pulls a human message out of an error envelope whose "error"
// field may be a string or an object.
func errorMessage(env wireEnvelope) string {
	if env.Message != "" {
		return env.Message
	}
	if len(env.Error) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(env.Error, &s) == nil {
		return s
	}
	var we wireError
	if json.Unmarshal(env.Error, &we) == nil {
		if we.Message != "" {
			return we.Message
		}
		return we.Code
	}
	return string(env.Error)
}

func parseErrorBody(body []byte) string {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := errorMessage(env); msg != "" {
			return msg
		}
	}
	return string(bytes.TrimSpace(body))
}
