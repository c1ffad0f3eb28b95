package destination

import (
	"net/http"

	destUC "publish-notifier/internal/usecase/destination"
)

// Register mounts the destination routes behind authz.
func Register(mux *http.ServeMux, svc *destUC.Service, authz func(http.Handler) http.Handler) {
	mux.Handle("GET /destinations", authz(ListHandler{svc}))
	mux.Handle("POST /destinations", authz(CreateHandler{svc}))
	mux.Handle("GET /destinations/{id}", authz(GetHandler{svc}))
	mux.Handle("PUT /destinations/{id}", authz(UpdateHandler{svc}))
}
