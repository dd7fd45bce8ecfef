package routes

import (
	"maps"
	"sort"
	"strings"
	"sync"
)

// Response is the literal response served for one (path, method) pair.
type Response struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode" koanf:"statusCode" validate:"required,gte=100,lte=599"`
	Headers    map[string]string `json:"headers" yaml:"headers" koanf:"headers" validate:"required"`
	Body       string            `json:"body" yaml:"body" koanf:"body"`
}

// RouteEntry binds a Response to exactly one (path, method) pair.
type RouteEntry struct {
	Path     string   `json:"path" yaml:"path" validate:"required"`
	Method   string   `json:"method" yaml:"method" validate:"required"`
	Response Response `json:"response" yaml:"response"`
}

func (e RouteEntry) clone() RouteEntry {
	e.Response.Headers = maps.Clone(e.Response.Headers)
	return e
}

// NormalizePath prefixes a leading slash when missing.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// Table maps path -> method -> RouteEntry. A (path, method) pair holds at
// most one entry.
type Table struct {
	mu     sync.RWMutex
	routes map[string]map[string]*RouteEntry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{routes: make(map[string]map[string]*RouteEntry)}
}

// Add validates the entry and inserts it, overwriting any entry already
// registered for the same (path, method).
func (t *Table) Add(path, method string, resp Response) error {
	entry := RouteEntry{Path: path, Method: method, Response: resp}
	if err := toValidationError(validate.Struct(entry)); err != nil {
		return err
	}
	entry.Path = NormalizePath(path)
	entry = entry.clone()

	t.mu.Lock()
	defer t.mu.Unlock()
	methods, ok := t.routes[entry.Path]
	if !ok {
		methods = make(map[string]*RouteEntry)
		t.routes[entry.Path] = methods
	}
	methods[entry.Method] = &entry
	return nil
}

// Get returns a copy of the entry for the pair.
func (t *Table) Get(path, method string) (RouteEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, err := t.lookup(NormalizePath(path), method)
	if err != nil {
		return RouteEntry{}, err
	}
	return entry.clone(), nil
}

func (t *Table) lookup(path, method string) (*RouteEntry, error) {
	methods, ok := t.routes[path]
	if !ok {
		return nil, &NotFoundError{Path: path, Method: method}
	}
	entry, ok := methods[method]
	if !ok {
		return nil, &NotFoundError{Path: path, Method: method, PathKnown: true}
	}
	return entry, nil
}

// SetField overwrites exactly one response field of an existing entry. The
// table is left untouched when the lookup or the new value is rejected.
func (t *Table) SetField(path, method string, update FieldUpdate) error {
	if update == nil {
		return newValidationError("update", "is required")
	}
	if err := update.validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, err := t.lookup(NormalizePath(path), method)
	if err != nil {
		return err
	}
	update.apply(&entry.Response)
	return nil
}

// Len returns the number of (path, method) pairs.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, methods := range t.routes {
		n += len(methods)
	}
	return n
}

// Snapshot returns a deep copy of the table contents.
func (t *Table) Snapshot() map[string]map[string]RouteEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]map[string]RouteEntry, len(t.routes))
	for path, methods := range t.routes {
		m := make(map[string]RouteEntry, len(methods))
		for method, entry := range methods {
			m[method] = entry.clone()
		}
		out[path] = m
	}
	return out
}

// Entries returns copies of every entry ordered by path, then method.
func (t *Table) Entries() []RouteEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RouteEntry, 0, len(t.routes))
	for _, methods := range t.routes {
		for _, entry := range methods {
			out = append(out, entry.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
