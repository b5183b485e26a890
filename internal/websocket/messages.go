package websocket

import (
	"errors"

	apierrors "co2dash/internal/errors"
	"co2dash/internal/services"
)

// Message types
const (
	TypeConnection = "connection"
	TypeControls   = "controls"
	TypeHeartbeat  = "heartbeat"
	TypeSnapshot   = "snapshot"
	TypeError      = "error"
)

// Error codes sent in error messages
const (
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeInvalidControls    = "INVALID_CONTROLS"
	CodeDatasetUnavailable = "DATASET_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// ClientMessage is a message sent by the browser. Controls fields sit next
// to the type: {"type":"controls","year":2000,"countries":["CHL"]}.
// An explicit "year":0 returns the session to the latest year; an absent
// year keeps the current one.
type ClientMessage struct {
	Type string `json:"type"`
	Year *int   `json:"year,omitempty"`
	services.Controls
}

// update returns the controls carried by the message and whether it asks
// for the latest year
func (m ClientMessage) update() (services.Controls, bool) {
	c := m.Controls
	if m.Year == nil {
		return c, false
	}
	c.Year = *m.Year
	return c, *m.Year == 0
}

// ServerMessage is a message sent to the browser
type ServerMessage struct {
	Type  string        `json:"type"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload describes why a client message was rejected
type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// errorPayload classifies err for the browser
func errorPayload(err error) *ErrorPayload {
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
		code := apiErr.ErrorCode
		if code == "VALIDATION_FAILED" {
			code = CodeInvalidControls
		}
		return &ErrorPayload{Code: code, Message: apiErr.Message, Details: apiErr.Details}
	case errors.Is(err, services.ErrYearOutOfRange),
		errors.Is(err, services.ErrMetricUnavailable),
		errors.Is(err, services.ErrUnknownCountry),
		errors.Is(err, services.ErrInvalidTopN):
		return &ErrorPayload{Code: CodeInvalidControls, Message: err.Error()}
	case errors.Is(err, services.ErrDatasetUnavailable),
		errors.Is(err, services.ErrDatasetNotConfigured),
		errors.Is(err, services.ErrEmptyDataset):
		return &ErrorPayload{Code: CodeDatasetUnavailable, Message: err.Error()}
	}
	return &ErrorPayload{Code: CodeInternal, Message: err.Error()}
}
