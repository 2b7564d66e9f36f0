package observability

import (
	"sync"
	"time"
)

type requestKey struct {
	Path   string
	Method string
	Status int
}

type errorKey struct {
	Path   string
	Method string
	Code   string
}

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu       sync.Mutex
	requests map[requestKey]int64
	errors   map[errorKey]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[requestKey]int64),
		errors:   make(map[errorKey]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[requestKey{Path: path, Method: method, Status: status}]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[errorKey{Path: path, Method: method, Code: code}]++
}

// RequestCount returns the counter for one path/method/status combination.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[requestKey{Path: path, Method: method, Status: status}]
}

// ErrorCount returns the counter for one path/method/code combination.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[errorKey{Path: path, Method: method, Code: code}]
}
