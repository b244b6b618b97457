package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a size-limited request body into v and writes the
// matching error response on failure. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var (
		maxErr  *http.MaxBytesError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxErr):
		RequestTooLargeError(w, r, "Request body exceeds size limit")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		ValidationError(w, r, "Invalid field type", map[string]string{
			typeErr.Field: "must be a " + jsonTypeName(typeErr.Type),
		})
	default:
		BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
	}
	return false
}

// jsonTypeName names t the way a JSON client would.
func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
