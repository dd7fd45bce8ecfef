package routes

import "maps"

// FieldUpdate replaces one field of a Response. The implementations are
// StatusCode, Headers and Body.
type FieldUpdate interface {
	// Field names the response field being replaced, for logs.
	Field() string
	validate() error
	apply(*Response)
}

// StatusCode replaces Response.StatusCode.
type StatusCode int

func (StatusCode) Field() string { return "statusCode" }

func (s StatusCode) validate() error {
	if err := validate.Var(int(s), "gte=100,lte=599"); err != nil {
		return newValidationError("statusCode", "must be between 100 and 599")
	}
	return nil
}

func (s StatusCode) apply(r *Response) { r.StatusCode = int(s) }

// Headers replaces Response.Headers as a whole.
type Headers map[string]string

func (Headers) Field() string { return "headers" }

func (h Headers) validate() error {
	if h == nil {
		return newValidationError("headers", "is required")
	}
	return nil
}

func (h Headers) apply(r *Response) { r.Headers = maps.Clone(map[string]string(h)) }

// Body replaces Response.Body.
type Body string

func (Body) Field() string { return "body" }

func (Body) validate() error { return nil }

func (b Body) apply(r *Response) { r.Body = string(b) }
