package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"publish-notifier/internal/handler/http/respond"
)

// TimeoutBody builds the JSON body written when the deadline fires.
type TimeoutBody func(elapsed time.Duration) any

// Timeout returns middleware that bounds a request to duration. When the
// deadline fires first it writes 504 with body(elapsed), or
// {"error":"request timeout"} when body is nil, and discards anything the
// handler writes afterwards. The handler's context is cancelled either way.
func Timeout(duration time.Duration, body TimeoutBody) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			r = r.WithContext(ctx)

			done := make(chan struct{})
			var mu sync.Mutex
			timedOut := false

			tw := &timeoutResponseWriter{
				w:        w,
				h:        make(http.Header),
				mu:       &mu,
				timedOut: &timedOut,
			}

			go func() {
				defer close(done)
				next.ServeHTTP(tw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				mu.Lock()
				timedOut = true
				written := tw.written
				mu.Unlock()
				if written {
					// ハンドラが先に書き込み済み
					<-done
					return
				}

				var payload any = map[string]string{"error": "request timeout"}
				if body != nil {
					payload = body(time.Since(start))
				}
				respond.JSON(w, http.StatusGatewayTimeout, payload)
			}
		})
	}
}

// timeoutResponseWriter buffers headers in its own map so the handler
// goroutine never shares one with the timeout response.
type timeoutResponseWriter struct {
	w        http.ResponseWriter
	h        http.Header
	mu       *sync.Mutex
	timedOut *bool
	written  bool
}

func (tw *timeoutResponseWriter) Header() http.Header { return tw.h }

func (tw *timeoutResponseWriter) WriteHeader(statusCode int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.writeHeaderLocked(statusCode)
}

func (tw *timeoutResponseWriter) writeHeaderLocked(statusCode int) {
	if *tw.timedOut || tw.written {
		return
	}
	tw.written = true
	dst := tw.w.Header()
	for k, v := range tw.h {
		dst[k] = v
	}
	tw.w.WriteHeader(statusCode)
}

func (tw *timeoutResponseWriter) Write(data []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if *tw.timedOut && !tw.written {
		return 0, http.ErrHandlerTimeout
	}
	tw.writeHeaderLocked(http.StatusOK)
	return tw.w.Write(data)
}
