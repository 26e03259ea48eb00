package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"firecontrol/src/controller"
	"firecontrol/src/firecmd"
	"firecontrol/src/intent"
)

type fireRunner interface {
	Fire(ctx context.Context, ti *intent.TradeIntent) (*firecmd.FireCommand, error)
}

// FireHandler returns the handler for fire requests. Admission failures map
// to distinct status codes so the signal subsystem can tell a hard stop
// (blocked direction) from transient pressure (no free slot).
func FireHandler(runner fireRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ti intent.TradeIntent
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&ti); err != nil {
			logger.WithError(err).Warn("invalid fire payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if err := ti.Normalize(); err != nil {
			logger.WithError(err).Warn("fire intent failed validation")
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		cmd, err := runner.Fire(r.Context(), &ti)
		if err != nil {
			writeFireError(w, &ti, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(cmd); err != nil {
			logger.WithError(err).Error("failed to encode fire response")
		}
	}
}

func writeFireError(w http.ResponseWriter, ti *intent.TradeIntent, err error) {
	var blocked *controller.DirectionBlockedError
	var rejected *controller.AdmissionRejectedError
	var levels *controller.InvalidLevelsError
	var dispatch *controller.DispatchFailureError

	switch {
	case errors.As(err, &blocked):
		writeError(w, http.StatusConflict, blocked.Error())

	case errors.As(err, &rejected):
		writeError(w, http.StatusTooManyRequests, rejected.Error())

	case errors.As(err, &levels):
		writeError(w, http.StatusUnprocessableEntity, levels.Error())

	case errors.As(err, &dispatch):
		logger.WithFields(map[string]interface{}{
			"mission_id":     ti.MissionID,
			"lease_released": dispatch.LeaseReleased,
		}).WithError(err).Error("fire dispatch failed")
		writeError(w, http.StatusBadGateway, dispatch.Error())

	default:
		logger.WithField("mission_id", ti.MissionID).WithError(err).Error("fire request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logger.WithError(err).Error("failed to encode error response")
	}
}
