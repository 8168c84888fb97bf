package weberr

import (
	"errors"
	"net/http"
)

type responder interface {
	Response() (body any, status int)
}

// Response returns the outermost response attached to err.
func Response(err error) (body any, status int, ok bool) {
	var re responder
	if !errors.As(err, &re) {
		return nil, 0, false
	}
	body, status = re.Response()
	return body, status, true
}

// Status is the HTTP status err maps to, 500 when none was attached.
func Status(err error) int {
	if _, status, ok := Response(err); ok {
		return status
	}
	return http.StatusInternalServerError
}

type headerer interface {
	Header() http.Header
}

// Header collects every header attached anywhere in the chain.
func Header(err error) http.Header {
	h := make(http.Header)
	for err != nil {
		if he, ok := err.(headerer); ok {
			for k, vs := range he.Header() {
				if h.Get(k) == "" {
					h[k] = vs
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return h
}

type responseError struct {
	error
	body   any
	status int
}

func (e *responseError) Response() (any, int) { return e.body, e.status }

func (e *responseError) Unwrap() error { return e.error }

type headerError struct {
	error
	header http.Header
}

func (e *headerError) Header() http.Header { return e.header }

func (e *headerError) Unwrap() error { return e.error }
