package notification

import "net/http"

// Register mounts the notification routes. guards are applied outermost
// first, so pass the timeout guard before caller authentication.
func Register(mux *http.ServeMux, svc Notifier, guards ...func(http.Handler) http.Handler) {
	mux.Handle("POST /notifications/slack", chain(SlackHandler{Svc: svc}, guards))
	mux.Handle("POST /notifications/slack/news", chain(NewsHandler{Svc: svc}, guards))
}

func chain(h http.Handler, guards []func(http.Handler) http.Handler) http.Handler {
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	return h
}
