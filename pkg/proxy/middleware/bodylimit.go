package middleware

import (
	"net/http"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

// BodyLimitMiddleware rejects requests whose body exceeds maxBytes with a
// 413 Payload Too Large response. It also wraps the body in http.MaxBytesReader
// so a body that lies about its Content-Length is still cut off while
// streaming.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				apierrors.Write(w, apierrors.New(apierrors.KindPayloadTooLarge, "request body exceeds maximum allowed size"))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
