package api

import "net/http"

// TeamHandler serves the caller's team.
type TeamHandler struct {
	deps Dependencies
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(deps Dependencies) *TeamHandler {
	return &TeamHandler{deps: deps}
}

// HandleGetTeam handles GET /team.
func (h *TeamHandler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	team, err := h.deps.GetTeam(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
