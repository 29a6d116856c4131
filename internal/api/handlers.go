package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sitex/tgtemplates/internal/dispatch"
	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
	"github.com/sitex/tgtemplates/internal/store"
)

// Handler is the phone's local HTTP surface: the deep-link/voice-shortcut
// analogue plus template management and the auth submit operations.
type Handler struct {
	repo     ports.TemplateRepo
	resolver *dispatch.Resolver
	groups   *dispatch.GroupRefresher
	auth     ports.AuthStateReader
	submit   ports.AuthSubmitter
	logger   *slog.Logger
}

func NewHandler(
	repo ports.TemplateRepo,
	resolver *dispatch.Resolver,
	groups *dispatch.GroupRefresher,
	auth ports.AuthStateReader,
	submit ports.AuthSubmitter,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		repo:     repo,
		resolver: resolver,
		groups:   groups,
		auth:     auth,
		submit:   submit,
		logger:   logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) AuthState(w http.ResponseWriter, r *http.Request) {
	st := h.auth.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  string(st.State),
		"detail": st.Detail,
	})
}

type submitRequest struct {
	Value string `json:"value"`
}

func (h *Handler) SubmitPhone(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, h.submit.SubmitPhone)
}

func (h *Handler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, h.submit.SubmitCode)
}

func (h *Handler) SubmitPassword(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, h.submit.SubmitPassword)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, fn func(string)) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == "" {
		http.Error(w, "value is required", http.StatusBadRequest)
		return
	}
	fn(req.Value)
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if templates == nil {
		templates = []domain.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": templates})
}

func (h *Handler) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl domain.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if tpl.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if tpl.MessageText == "" && tpl.TargetGroupID == nil {
		http.Error(w, "messageText may be empty only when a target group is set", http.StatusBadRequest)
		return
	}

	saved, err := h.repo.Upsert(r.Context(), tpl)
	if errors.Is(err, store.ErrEmptyName) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	switch err := h.repo.Delete(r.Context(), id); {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) DuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	dup, err := h.repo.Duplicate(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dup)
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.Cached(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": groups})
}

func (h *Handler) RefreshGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.Refresh(r.Context())
	if errors.Is(err, dispatch.ErrNotAuthenticated) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": groups})
}

type sendRequest struct {
	Template string `json:"template"`
}

// Send is the deep-link/voice surface: one opaque action taking a template id
// or case-insensitive name, answering with a one-line dialog.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Template == "" {
		http.Error(w, "template is required", http.StatusBadRequest)
		return
	}

	tpl, err := h.resolver.Resolve(r.Context(), req.Template)
	if errors.Is(err, dispatch.ErrTemplateNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"dialog": "Template not found"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.resolver.Send(r.Context(), tpl.ID); err != nil {
		h.logger.Warn("trigger send failed", "template_id", tpl.ID, "error", err)
		writeJSON(w, sendFailureStatus(err), map[string]any{
			"dialog": fmt.Sprintf("Failed: %s", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dialog": fmt.Sprintf("Sent %s!", tpl.Name),
	})
}

func sendFailureStatus(err error) int {
	var de *dispatch.DeliveryError
	switch {
	case errors.Is(err, dispatch.ErrNotAuthenticated):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrNoTargetGroup):
		return http.StatusUnprocessableEntity
	case errors.As(err, &de):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
