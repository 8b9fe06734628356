package httpapi

import (
	"errors"
	"net/http"
	"time"

	"loquia.org/internal/account"
	"loquia.org/internal/rbac"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      account.Session `json:"user"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.accounts.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	token, expiresAt, err := account.IssueToken(sess, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	a.audit(r.Context(), "account.signup", map[string]any{
		"user_id": sess.UserID,
		"role":    string(sess.Role),
	})
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, ExpiresAt: expiresAt, User: sess})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	token, expiresAt, err := account.IssueToken(sess, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	a.audit(r.Context(), "account.login", map[string]any{"user_id": sess.UserID})
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: expiresAt, User: sess})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	a.audit(r.Context(), "account.logout", map[string]any{"user_id": sess.UserID})
	a.accounts.Logout(sess)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"user":        sess,
			"permissions": rbac.PermissionsOf(sess.Role),
		})
	case http.MethodPut:
		var req updateProfileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.accounts.UpdateProfile(r.Context(), sess, req.Name); err != nil {
			handleAccountError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": sess})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleMeEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	var req updateEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.UpdateEmail(r.Context(), sess, req.Email); err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r.Context(), "account.email.update", map[string]any{"user_id": sess.UserID})
	writeJSON(w, http.StatusOK, map[string]any{"user": sess})
}

func (a *API) handleMePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.UpdatePassword(r.Context(), sess, req.CurrentPassword, req.NewPassword); err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r.Context(), "account.password.update", map[string]any{"user_id": sess.UserID})
	writeJSON(w, http.StatusOK, map[string]any{"status": "password_updated"})
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidInput), errors.Is(err, account.ErrIncorrectPassword):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, account.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrDuplicateEmail), errors.Is(err, account.ErrEmailInUse):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
