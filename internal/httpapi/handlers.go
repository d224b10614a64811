package httpapi

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/vibe8n/agentloop/internal/agent"
	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/tools"
	"github.com/vibe8n/agentloop/pkg/log"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRequestBody = 1 << 20

type chatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
}

type healthResponse struct {
	Status           string `json:"status"`
	MCPConnected     bool   `json:"mcp_connected"`
	EngineConfigured bool   `json:"engine_configured"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := jsonAPI.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if !s.agent.Ready() {
		writeError(w, http.StatusServiceUnavailable, "MCP server not connected")
		return
	}

	resp, err := s.agent.Chat(r.Context(), agent.Request{
		Prompt:    req.Prompt,
		SessionID: req.SessionID,
	})
	if err != nil {
		if agenterr.IsErrorType(err, agenterr.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("Chat failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		MCPConnected:     s.agent.Ready(),
		EngineConfigured: s.agent.EngineConfigured(),
	})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	capabilities, err := s.agent.Capabilities(r.Context())
	if err != nil {
		if agenterr.IsErrorType(err, agenterr.ErrProviderUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if capabilities == nil {
		capabilities = []tools.Descriptor{}
	}
	writeJSON(w, http.StatusOK, capabilities)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
