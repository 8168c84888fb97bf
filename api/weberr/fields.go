package weberr

import "errors"

type fielder interface {
	Fields() map[string]any
}

// Fields merges the fields of every fielder in the chain, outermost wins.
func Fields(err error) (map[string]any, bool) {
	var fields map[string]any
	for err != nil {
		var fe fielder
		if !errors.As(err, &fe) {
			break
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		for k, v := range fe.Fields() {
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
		u, ok := fe.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return fields, fields != nil
}

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Fields() map[string]any { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
