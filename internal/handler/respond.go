package handler

import (
	"encoding/json"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/query"
)

// response is the envelope every endpoint answers with.
type response struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, response{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data any, pagination query.Pagination) {
	respondJSON(w, http.StatusOK, response{Success: true, Data: data, Pagination: &pagination})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, response{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, response{Success: false, Error: message})
}
