package api

import (
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

const maxBodyBytes = 1 << 16

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeBody reads a single JSON object from the request body. Unknown fields
// are rejected.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
