package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"loquia.org/internal/billing"
	"loquia.org/internal/chat"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"items": a.chat.History(r.Context(), sess.UserID),
		})
	case http.MethodPost:
		var req chatRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, r, http.StatusBadRequest, "message is required")
			return
		}

		limit, err := a.dailyLimitFor(r, sess.UserID)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		reply, err := a.chat.Send(r.Context(), sess.UserID, req.Message, limit)
		if err != nil {
			if errors.Is(err, chat.ErrDailyLimitReached) {
				writeError(w, r, http.StatusTooManyRequests, err.Error())
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"reply":      reply,
			"sent_today": a.chat.SentToday(sess.UserID),
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// dailyLimitFor derives the message quota from the active subscription plan.
func (a *API) dailyLimitFor(r *http.Request, userID string) (int, error) {
	sub, err := a.billing.CurrentSubscription(r.Context(), userID)
	if err != nil {
		return 0, err
	}
	planID := ""
	if sub != nil && sub.Status == billing.SubStatusActive {
		planID = sub.PlanID
	}
	return chat.DailyLimit(planID), nil
}
