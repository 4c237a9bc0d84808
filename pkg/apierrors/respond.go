package apierrors

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response to w, setting the content-type header.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// Write renders err to w using the spec's error body shape and the status
// code matching its Kind.
func Write(w http.ResponseWriter, err *Error) {
	WriteJSON(w, err.HTTPStatusCode(), NewBody(err))
}
