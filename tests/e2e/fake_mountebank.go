package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"mb-route-sync/models"
)

// FakeMountebank is an in-process stand-in for the Mountebank admin API.
// It keeps imposters in memory and answers delete of an unknown port with
// "{}" like the real server does.
type FakeMountebank struct {
	Server *httptest.Server

	mu        sync.Mutex
	imposters map[int]models.Imposter
	calls     []string
	failNext  map[string]int // "METHOD" -> status to return once
}

// NewFakeMountebank starts the fake. Call Close when done.
func NewFakeMountebank() *FakeMountebank {
	f := &FakeMountebank{imposters: map[int]models.Imposter{}, failNext: map[string]int{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *FakeMountebank) URL() string { return f.Server.URL }

func (f *FakeMountebank) Close() { f.Server.Close() }

// Reset forgets all imposters and recorded calls.
func (f *FakeMountebank) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imposters = map[int]models.Imposter{}
	f.calls = nil
	f.failNext = map[string]int{}
}

// FailNext makes the next request with the given HTTP method answer status.
func (f *FakeMountebank) FailNext(method string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[method] = status
}

// Calls returns "METHOD /path" for every admin request received so far.
func (f *FakeMountebank) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Imposter returns the imposter currently registered on port.
func (f *FakeMountebank) Imposter(port int) (models.Imposter, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.imposters[port]
	return imp, ok
}

// Respond returns what the imposter on port would answer for method and
// path, using the first stub whose equals predicate matches.
func (f *FakeMountebank) Respond(port int, method, path string) (models.IsResponse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.imposters[port]
	if !ok {
		return models.IsResponse{}, false
	}
	for _, stub := range imp.Stubs {
		if len(stub.Predicates) == 0 || stub.Predicates[0].Equals == nil {
			continue
		}
		eq := stub.Predicates[0].Equals
		if strings.EqualFold(eq.Method, method) && eq.Path == path && len(stub.Responses) > 0 && stub.Responses[0].Is != nil {
			return *stub.Responses[0].Is, true
		}
	}
	// Mountebank's default response.
	return models.IsResponse{StatusCode: http.StatusOK, Headers: map[string]string{}}, true
}

func (f *FakeMountebank) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if status, ok := f.failNext[r.Method]; ok {
		delete(f.failNext, r.Method)
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"errors":[{"code":"injected failure"}]}`)
		return
	}

	var port int
	_, _ = fmt.Sscanf(r.URL.Path, "/imposters/%d", &port)

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/imposters":
		list := models.ImpostersResponse{Imposters: []models.ImposterSummary{}}
		for _, imp := range f.imposters {
			list.Imposters = append(list.Imposters, models.ImposterSummary{Protocol: imp.Protocol, Port: imp.Port, Name: imp.Name})
		}
		_ = json.NewEncoder(w).Encode(list)

	case r.Method == http.MethodPost && r.URL.Path == "/imposters":
		var imp models.Imposter
		if err := json.NewDecoder(r.Body).Decode(&imp); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, exists := f.imposters[imp.Port]; exists {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, `{"errors":[{"code":"resource conflict","message":"port %d is already in use"}]}`, imp.Port)
			return
		}
		f.imposters[imp.Port] = imp
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(imp)

	case r.Method == http.MethodGet && port != 0:
		imp, ok := f.imposters[port]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(models.DetailedImposter{Protocol: imp.Protocol, Port: imp.Port, Name: imp.Name, Stubs: imp.Stubs})

	case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/savedRequests"):
		_, _ = fmt.Fprint(w, `{}`)

	case r.Method == http.MethodDelete && port != 0:
		imp, ok := f.imposters[port]
		if !ok {
			_, _ = fmt.Fprint(w, `{}`)
			return
		}
		delete(f.imposters, port)
		_ = json.NewEncoder(w).Encode(imp)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
