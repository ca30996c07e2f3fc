package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Status values
// --------------------------------------------------------------------------

const (
	// StatusOK is returned by the store for every successful request
	StatusOK = "OK"
	// StatusError is returned by the store (or synthesized by the client) on failure
	StatusError = "ERROR"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrEmptyResponse is returned when the peer closes the connection before sending any bytes
	ErrEmptyResponse = errors.New("connection closed by peer before a response was received")
	// ErrFrameTooLarge is returned when a response grows beyond the configured maximum frame size
	ErrFrameTooLarge = errors.New("response frame exceeds maximum size")
	// ErrMalformedFrame is returned when the byte stream cannot be the start of a json object
	ErrMalformedFrame = errors.New("malformed response frame")
	// ErrNilRequest is returned when a nil request is passed to the client
	ErrNilRequest = errors.New("request must not be nil")
	// ErrInvalidUTF8 is returned when the key or value of a request is not valid UTF-8
	ErrInvalidUTF8 = errors.New("key and value must be valid UTF-8")
)

// --------------------------------------------------------------------------
// Request
// --------------------------------------------------------------------------

// Request is a single request sent to the store.
// A request without a value is a GET, a request with a value (even an empty one) is a SET.
type Request struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"`
}

// NewSetRequest creates a new SET request
func NewSetRequest(key, value string) *Request {
	return &Request{
		Key:   key,
		Value: &value,
	}
}

// NewGetRequest creates a new GET request
func NewGetRequest(key string) *Request {
	return &Request{
		Key: key,
	}
}

// IsSet reports whether the request carries a value
func (r *Request) IsSet() bool {
	return r.Value != nil
}

// String returns a short representation used in log messages
func (r *Request) String() string {
	if r.IsSet() {
		return fmt.Sprintf("SET %s (%d bytes)", r.Key, len(*r.Value))
	}
	return fmt.Sprintf("GET %s", r.Key)
}

// --------------------------------------------------------------------------
// Response
// --------------------------------------------------------------------------

// Response is the answer of the store to a single request.
// Message, Key and Value are decoded leniently: a non-string json value is
// kept as its json text (e.g. "42"), so a well-formed OK is never turned into a failure.
type Response struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Key     string  `json:"key,omitempty"`   // Used for: GET responses
	Value   *string `json:"value,omitempty"` // Used for: GET responses

	// Size is the number of bytes the response occupied on the wire (not serialized)
	Size int `json:"-"`
}

// NewOKResponse creates a new successful response
func NewOKResponse(message string) *Response {
	return &Response{
		Status:  StatusOK,
		Message: message,
	}
}

// NewValueResponse creates a new successful GET response
func NewValueResponse(key, value string) *Response {
	return &Response{
		Status: StatusOK,
		Key:    key,
		Value:  &value,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
	}
}

// Ok reports whether the status of the response is OK
func (r *Response) Ok() bool {
	return r.Status == StatusOK
}

// Err returns nil for successful responses, otherwise an error carrying the response message
func (r *Response) Err() error {
	if r.Ok() {
		return nil
	}
	if r.Message != "" {
		return errors.New(r.Message)
	}
	return fmt.Errorf("unexpected status %q", r.Status)
}
