package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/auth/state", h.AuthState)
	mux.HandleFunc("POST /v1/auth/phone", h.SubmitPhone)
	mux.HandleFunc("POST /v1/auth/code", h.SubmitCode)
	mux.HandleFunc("POST /v1/auth/password", h.SubmitPassword)

	mux.HandleFunc("GET /v1/templates", h.ListTemplates)
	mux.HandleFunc("POST /v1/templates", h.UpsertTemplate)
	mux.HandleFunc("DELETE /v1/templates/{id}", h.DeleteTemplate)
	mux.HandleFunc("POST /v1/templates/{id}/duplicate", h.DuplicateTemplate)

	mux.HandleFunc("GET /v1/groups", h.ListGroups)
	mux.HandleFunc("POST /v1/groups/refresh", h.RefreshGroups)

	mux.HandleFunc("POST /v1/send", h.Send)

	return mux
}
