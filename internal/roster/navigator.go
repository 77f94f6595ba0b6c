package roster

import (
	"log/slog"
	"sync"
)

// Routes the epics navigate to.
const (
	RouteAuth           = "Auth"
	RouteMain           = "Main"
	RouteEmployeeList   = "EmployeeList"
	RouteCreateEmployee = "CreateEmployee"
	RouteEditEmployee   = "EditEmployee"
)

// Params are route parameters.
type Params map[string]string

// Navigator moves the user interface to a route.
type Navigator interface {
	Navigate(route string, params Params)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string, params Params)

func (f NavigatorFunc) Navigate(route string, params Params) { f(route, params) }

// Navigation is one recorded Navigate call.
type Navigation struct {
	Route  string `json:"route"`
	Params Params `json:"params,omitempty"`
}

// History is a Navigator that records every call. Safe for concurrent use.
type History struct {
	mu    sync.Mutex
	steps []Navigation
}

// Navigate records the call.
func (h *History) Navigate(route string, params Params) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, Navigation{Route: route, Params: params})
	slog.Debug("navigate", "route", route, "params", params)
}

// Current returns the latest route, "" when nothing was recorded.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.steps) == 0 {
		return ""
	}
	return h.steps[len(h.steps)-1].Route
}

// Steps returns a copy of every recorded call.
func (h *History) Steps() []Navigation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Navigation(nil), h.steps...)
}
