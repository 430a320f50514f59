package api

import (
	"encoding/json"
	"net/http"

	"rfqdash/pkg/audit"

	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

type uploadsResponse struct {
	Uploads []audit.Entry `json:"uploads"`
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to encode response: %v", err)
		sendResponse(w, http.StatusInternalServerError, []byte(`{"error":"encoding failed"}`))
		return
	}
	sendResponse(w, status, body)
}

func sendError(w http.ResponseWriter, status int, err error) {
	sendJSON(w, status, errorResponse{Error: err.Error()})
}
