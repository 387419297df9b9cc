package http

import (
	"net/http"
	"strings"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	TinkUserID string `json:"tink_user_id,omitempty"`
}

// handleCreateUser handles POST /user
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, err := s.deps.Users.Create(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Username: u.Username, Email: u.Email, TinkUserID: u.TinkUserID})
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.deps.Users.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.startSession(w, u.Username); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Username: u.Username, Email: u.Email})
}

// handleLogout handles POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// handleBankLink handles GET /bank/link
func (s *Server) handleBankLink(w http.ResponseWriter, r *http.Request, username string) {
	link, err := s.deps.Bank.LinkURL(r.Context(), username)
	if err != nil {
		fail(w, r, err)
		return
	}
	if r.URL.Query().Get("redirect") == "true" {
		http.Redirect(w, r, link, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

// handleBankCallback handles GET /bank/callback, the Tink Link redirect
func (s *Server) handleBankCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if linkErr := q.Get("error"); linkErr != "" {
		writeError(w, http.StatusBadRequest, strings.TrimSpace("bank link failed: "+linkErr+" "+q.Get("message")))
		return
	}
	credentialsID := q.Get("credentialsId")
	if credentialsID == "" {
		writeError(w, http.StatusBadRequest, "credentialsId is required")
		return
	}

	username, err := s.deps.Bank.Callback(r.Context(), credentialsID, q.Get("state"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": username, "credentials_id": credentialsID})
}
