package models

import "encoding/json"

// ImposterSummary is a single entry of the GET /imposters listing.
type ImposterSummary struct {
	Protocol string `json:"protocol"`
	Port     int    `json:"port"`
	Name     string `json:"name,omitempty"`
}

// ImpostersResponse is the top-level structure for the GET /imposters response.
type ImpostersResponse struct {
	Imposters []ImposterSummary `json:"imposters"`
}

// Imposter is the creation payload for POST /imposters.
type Imposter struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Name     string `json:"name,omitempty"`
	Stubs    []Stub `json:"stubs"`
}

// DetailedImposter is what Mountebank returns for a single imposter.
type DetailedImposter struct {
	Protocol         string            `json:"protocol"`
	Port             int               `json:"port"`
	Name             string            `json:"name,omitempty"`
	NumberOfRequests int               `json:"numberOfRequests,omitempty"`
	Requests         []json.RawMessage `json:"requests,omitempty"` // recorded requests are free-form
	Stubs            []Stub            `json:"stubs,omitempty"`
}

// Stub pairs predicates with the responses Mountebank cycles through.
type Stub struct {
	Predicates []Predicate `json:"predicates"`
	Responses  []Response  `json:"responses"`
}

// Predicate holds one operator. Only "equals" is ever emitted.
type Predicate struct {
	Equals *EqualsPredicate `json:"equals,omitempty"`
}

// EqualsPredicate requires both method and path to match.
type EqualsPredicate struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Response is keyed by response type. Only literal "is" responses are emitted.
type Response struct {
	Is *IsResponse `json:"is,omitempty"`
}

// IsResponse is a literal response. Mountebank expects the lowercase
// "statuscode" key.
type IsResponse struct {
	StatusCode int               `json:"statuscode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}
