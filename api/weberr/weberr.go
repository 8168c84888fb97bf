package weberr

import "net/http"

// Opt decorates an error with response metadata. Options are applied in
// order, so later options wrap earlier ones.
type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

func WithField(key string, value any) Opt {
	return WithFields(map[string]any{key: value})
}

func WithHeader(key, value string) Opt {
	return func(err error) error {
		h := make(http.Header)
		h.Set(key, value)
		return &headerError{error: err, header: h}
	}
}
