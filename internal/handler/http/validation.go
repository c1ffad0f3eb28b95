package http

import (
	"errors"
	"mime"
	"net/http"

	"publish-notifier/internal/handler/http/respond"
)

const (
	maxAuthorizationHeader = 8 << 10
	maxPathLength          = 2 << 10
	// DefaultMaxBodyBytes covers a news request with a few hundred ids.
	DefaultMaxBodyBytes = 1 << 20
)

// InputValidation returns middleware that rejects oversized headers and
// paths, requires a JSON body on POST and PUT, and caps the body at maxBody.
func InputValidation(maxBody int64) func(http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	limit := LimitRequestBody(maxBody)
	return func(next http.Handler) http.Handler {
		capped := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header.Get("Authorization")) > maxAuthorizationHeader {
				respond.Error(w, http.StatusBadRequest, errors.New("authorization header too large"))
				return
			}
			if len(r.URL.Path) > maxPathLength {
				respond.Error(w, http.StatusRequestURITooLong, errors.New("URI too long"))
				return
			}
			if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength != 0 {
				mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if err != nil || mt != "application/json" {
					respond.Error(w, http.StatusUnsupportedMediaType, errors.New("content type must be application/json"))
					return
				}
			}

			capped.ServeHTTP(w, r)
		})
	}
}
