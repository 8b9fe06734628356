package httpapi

import (
	"net/http"
	"strings"

	"loquia.org/internal/rbac"
)

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	users, err := a.accounts.ListUsers(r.Context(), sess)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/admin/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/role") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/role"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		var req updateRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.accounts.UpdateUserRole(r.Context(), sess, id, rbac.Role(req.Role))
		if err != nil {
			handleAccountError(w, r, err)
			return
		}
		a.audit(r.Context(), "account.role.update", map[string]any{
			"target_user": id,
			"new_role":    req.Role,
		})
		writeJSON(w, http.StatusOK, user)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, err := a.accounts.GetUser(r.Context(), sess, path)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
