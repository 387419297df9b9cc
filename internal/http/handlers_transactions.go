package http

import (
	"errors"
	"net/http"
	"strconv"

	"ecobud/internal/core"
	"ecobud/internal/log"
)

// handleListTransactions handles GET /transactions. It schedules a sync
// and answers from the store without waiting for it.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, username string) {
	txs, err := s.deps.Transactions.List(r.Context(), username)
	if err != nil {
		fail(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// handleGetTransaction handles GET /transactions/{id}
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, username string) {
	t, err := s.deps.Transactions.Get(r.Context(), username, r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTransaction handles PUT /transactions/{id} with a full document
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, username string) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.deps.Transactions.Update(r.Context(), username, r.PathValue("id"), body)
	if errors.Is(err, core.ErrDecode) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type syncResponse struct {
	Username   string   `json:"username"`
	Count      int      `json:"count"`
	Inserted   int      `json:"inserted"`
	Merged     int      `json:"merged"`
	ItemErrors []string `json:"item_errors,omitempty"`
}

// handleSync handles POST /transactions/sync. With wait=true the sync runs
// inside the request, otherwise a job is queued.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, username string) {
	if r.URL.Query().Get("wait") == "true" {
		result, err := s.deps.Transactions.SyncNow(r.Context(), username)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, syncResponse{
			Username:   result.Username,
			Count:      result.Count,
			Inserted:   result.Inserted,
			Merged:     result.Merged,
			ItemErrors: result.ErrorMessages(),
		})
		return
	}

	job, err := s.deps.Transactions.RequestSync(r.Context(), username)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.JobID, "status": string(job.Status)})
}

// handleGetJob handles GET /jobs/{id}. Other users' jobs are not found.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, username string) {
	if s.deps.Jobs == nil {
		writeError(w, http.StatusNotFound, "job status is not tracked by this server")
		return
	}
	job, err := s.deps.Jobs.GetJob(r.Context(), r.PathValue("id"))
	if err == nil && job.Username != username {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleRawTransactions handles GET /tink/transactions, the aggregator's
// payloads as they come.
func (s *Server) handleRawTransactions(w http.ResponseWriter, r *http.Request, username string) {
	pages := s.opts.PageCount
	if v := r.URL.Query().Get("pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "pages must be between 1 and 50")
			return
		}
		pages = n
	}

	payloads, err := s.deps.Raw.FetchTransactions(r.Context(), username, pages)
	if err != nil {
		writeError(w, http.StatusBadGateway, "aggregator unavailable")
		log.FromContext(r.Context()).WarnContext(r.Context(), "Raw transaction fetch failed", log.FieldError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": payloads})
}
