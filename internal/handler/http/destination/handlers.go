// Package destination exposes admin endpoints for Slack webhook destinations.
// There is no delete route; a destination is retired by disabling it.
package destination

import (
	"encoding/json"
	"errors"
	"net/http"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/handler/http/pathutil"
	"publish-notifier/internal/handler/http/respond"
	destUC "publish-notifier/internal/usecase/destination"
)

var errInvalidBody = errors.New("invalid request body")

type ListHandler struct{ Svc *destUC.Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, d := range list {
		out = append(out, toDTO(d))
	}
	respond.JSON(w, http.StatusOK, out)
}

type GetHandler struct{ Svc *destUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	d, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(d))
}

type CreateHandler struct{ Svc *destUC.Service }

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	d, err := h.Svc.Create(r.Context(), destUC.CreateInput{
		Category:   req.Category,
		Channel:    req.Channel,
		WebhookURL: req.WebhookURL,
		Enabled:    req.Enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(d))
}

type UpdateHandler struct{ Svc *destUC.Service }

func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	d, err := h.Svc.Update(r.Context(), destUC.UpdateInput{
		ID:         id,
		Channel:    req.Channel,
		WebhookURL: req.WebhookURL,
		Enabled:    req.Enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(d))
}

// writeError maps use case errors to status codes. Validation messages are
// built from fixed strings and are safe to return verbatim.
func writeError(w http.ResponseWriter, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, verr)
	case errors.Is(err, destUC.ErrDestinationNotFound):
		respond.Error(w, http.StatusNotFound, destUC.ErrDestinationNotFound)
	case errors.Is(err, destUC.ErrDuplicateDestination):
		respond.Error(w, http.StatusConflict, destUC.ErrDuplicateDestination)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}
