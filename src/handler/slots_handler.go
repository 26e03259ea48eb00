package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"firecontrol/src/model"
	"firecontrol/src/slots"
)

type leaseViewer interface {
	GetLeaseState(ctx context.Context, userID uint) (slots.LeaseState, error)
}

type leaseReleaser interface {
	ReleaseOnClose(ctx context.Context, userID uint, missionID string) (bool, error)
	ForceRelease(ctx context.Context, userID uint, missionID string, operator string) (bool, error)
}

type operatorFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type mirrorFinder interface {
	FindByMission(ctx context.Context, missionID string) (*model.ExecutionMirror, error)
}

// LeaseStateHandler returns the operator inspection view: slot counters per
// mode plus the open leases backing them.
func LeaseStateHandler(viewer leaseViewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseUserID(w, r)
		if !ok {
			return
		}

		state, err := viewer.GetLeaseState(r.Context(), userID)
		if err != nil {
			logger.WithError(err).Error("failed to fetch lease state")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state); err != nil {
			logger.WithError(err).Error("failed to encode lease state response")
		}
	}
}

// CloseLeaseHandler frees the slot after the caller reports the position
// closed. Idempotent: a second close reports released=false.
func CloseLeaseHandler(releaser leaseReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseUserID(w, r)
		if !ok {
			return
		}
		missionID := chi.URLParam(r, "missionID")
		if missionID == "" {
			http.Error(w, "missing missionID", http.StatusBadRequest)
			return
		}

		released, err := releaser.ReleaseOnClose(r.Context(), userID, missionID)
		if err != nil {
			logger.WithError(err).Error("failed to release lease on close")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]bool{"released": released}); err != nil {
			logger.WithError(err).Error("failed to encode close response")
		}
	}
}

type forceReleasePayload struct {
	Operator string `json:"operator"`
	Token    string `json:"token"`
}

// ForceReleaseHandler is the manual override for a stuck lease. The caller
// authenticates as an operator account: the payload names the operator and
// carries the token matching that account's stored hash.
func ForceReleaseHandler(releaser leaseReleaser, operators operatorFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseUserID(w, r)
		if !ok {
			return
		}
		missionID := chi.URLParam(r, "missionID")
		if missionID == "" {
			http.Error(w, "missing missionID", http.StatusBadRequest)
			return
		}

		var payload forceReleasePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid force release payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.Operator == "" || payload.Token == "" {
			http.Error(w, "Operator and token are required", http.StatusBadRequest)
			return
		}

		operator, err := operators.FindByUsername(r.Context(), payload.Operator)
		if err != nil {
			logger.WithError(err).Error("failed to fetch operator account for force release")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if operator == nil || operator.OperatorTokenHash == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(operator.OperatorTokenHash), []byte(payload.Token)); err != nil {
			logger.WithFields(map[string]interface{}{
				"user_id":  userID,
				"operator": payload.Operator,
			}).Warn("operator token mismatch on force release")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		released, err := releaser.ForceRelease(r.Context(), userID, missionID, payload.Operator)
		if err != nil {
			logger.WithError(err).Error("failed to force release lease")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]bool{"released": released}); err != nil {
			logger.WithError(err).Error("failed to encode force release response")
		}
	}
}

// MirrorHandler returns the audit mirror row for a mission so an operator
// can see how a lease ended before forcing anything.
func MirrorHandler(mirrors mirrorFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseUserID(w, r)
		if !ok {
			return
		}
		missionID := chi.URLParam(r, "missionID")
		if missionID == "" {
			http.Error(w, "missing missionID", http.StatusBadRequest)
			return
		}

		mirror, err := mirrors.FindByMission(r.Context(), missionID)
		if err != nil {
			logger.WithError(err).Error("failed to fetch execution mirror")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if mirror == nil || mirror.UserID != userID {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(mirror); err != nil {
			logger.WithError(err).Error("failed to encode mirror response")
		}
	}
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid userID", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}
