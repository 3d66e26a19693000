// Package handler holds the demo's route handlers and its route table.
//
// Handlers do not log and keep no state between requests. They report
// failures by returning an error; translating that error into a response is
// left to the hosting server.
package handler

import (
	"errors"
	"net/http"
)

// Handler is an HTTP handler that may fail. A non-nil error means nothing has
// been written to w yet.
type Handler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) error { return f(w, r) }

// Static serves a fixed body.
type Static struct {
	Body        []byte
	ContentType string
}

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", s.ContentType)
	w.Write(s.Body)
	return nil
}

var errForced = errors.New("forced failure")

// Fail fails every request with an Internal error.
func Fail(w http.ResponseWriter, r *http.Request) error { return errForced }

// Route binds a method and an exact path to a handler.
type Route struct {
	Method  string
	Path    string
	Name    string
	Handler Handler
}

// Pattern returns the http.ServeMux pattern matching exactly r's method and
// path.
func (r Route) Pattern() string {
	if r.Path == "/" {
		return r.Method + " /{$}"
	}
	return r.Method + " " + r.Path
}

// Deps are the pieces the route table is built from.
type Deps struct {
	Page       []byte
	Stylesheet []byte
	Data       *Data
}

// Routes returns the route table in registration order.
func Routes(d Deps) []Route {
	return []Route{
		{
			Method:  http.MethodGet,
			Path:    "/",
			Name:    "index",
			Handler: &Static{Body: d.Page, ContentType: "text/html; charset=utf-8"},
		},
		{
			Method:  http.MethodGet,
			Path:    "/data",
			Name:    "data",
			Handler: d.Data,
		},
		{
			Method:  http.MethodGet,
			Path:    "/error",
			Name:    "error",
			Handler: HandlerFunc(Fail),
		},
		{
			Method:  http.MethodGet,
			Path:    "/styles.css",
			Name:    "styles",
			Handler: &Static{Body: d.Stylesheet, ContentType: "text/css; charset=utf-8"},
		},
	}
}
