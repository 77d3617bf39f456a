// ABOUTME: HTTP command surface of the radio bridge
// ABOUTME: Status, session start/stop, control messages, tuning, and metrics
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/internal/session"
)

// StatusResponse is the body of GET /status and of successful commands
type StatusResponse struct {
	Name      string         `json:"name"`
	ServerID  string         `json:"server_id"`
	Uptime    string         `json:"uptime"`
	Playing   bool           `json:"playing"`
	Listeners int            `json:"listeners"`
	Title     string         `json:"title,omitempty"`
	Session   session.Status `json:"session"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// routes configures every HTTP route
func (s *Server) routes() {
	s.mux.HandleFunc("GET /radio", s.handleWebSocket)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /session/start", s.withController(s.handleSessionStart))
	s.mux.HandleFunc("POST /session/stop", s.withController(s.handleSessionStop))
	s.mux.HandleFunc("POST /control", s.withController(s.handleControl))
	s.mux.HandleFunc("POST /tune", s.withController(s.handleTune))
}

// withController rejects commands when no controller is attached
func (s *Server) withController(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.controller == nil {
			writeError(w, http.StatusServiceUnavailable, "no session controller attached")
			return
		}
		handler(w, r)
	}
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Name:      s.config.Name,
		ServerID:  s.serverID,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Playing:   s.Playing(),
		Listeners: s.ClientCount(),
		Title:     s.Metadata().Title,
	}
	if s.controller != nil {
		resp.Session = s.controller.Status()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, s.status())
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.StartSession(); err != nil {
		log.Printf("Session start failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.updateTUI()
	writeJSONResponse(w, http.StatusOK, s.status())
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.StopSession(); err != nil {
		log.Printf("Session stop failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.updateTUI()
	writeJSONResponse(w, http.StatusOK, s.status())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.FormValue("key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	value := r.FormValue("value")

	if err := s.controller.SendControl(key, value); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	mhz, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("mhz")), 64)
	if err != nil || mhz <= 0 {
		writeError(w, http.StatusBadRequest, "mhz must be a positive number")
		return
	}

	if err := s.controller.Tune(mhz); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, s.status())
}

func writeJSONResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSONResponse(w, code, errorResponse{Error: msg})
}
