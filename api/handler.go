package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"gitlabanalyzer/analyzer"
	"gitlabanalyzer/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type sessionRequest struct {
	Token       string `json:"token"`
	HashedToken string `json:"hashed_token"`
	URL         string `json:"url"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// addSession registers a credential.
// POST /sessions
func (h *Handler) addSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, analyzer.Failure[struct{}]("Invalid request body"))
		return
	}
	if req.URL == "" {
		req.URL = h.defaultURL
	}

	respond(h, w, http.StatusCreated, h.analyzer.Add(r.Context(), req.Token, req.HashedToken, req.URL))
}

// projectList returns the projects visible to the credential.
// GET /projects
func (h *Handler) projectList(w http.ResponseWriter, r *http.Request) {
	respond(h, w, http.StatusOK, h.analyzer.ProjectList(r.Context(), hashedToken(r)))
}

// syncProject queues a sync.
// POST /projects/{id}/sync
func (h *Handler) syncProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusAccepted, h.analyzer.SyncProject(r.Context(), hashedToken(r), id))
}

// syncState returns the sync bookkeeping.
// GET /projects/{id}/sync
func (h *Handler) syncState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.CheckSyncState(r.Context(), hashedToken(r), id))
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.ProjectMembers(r.Context(), hashedToken(r), id))
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.ProjectUsers(r.Context(), hashedToken(r), id))
}

func (h *Handler) trunkCommits(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.TrunkCommits(r.Context(), hashedToken(r), id))
}

func (h *Handler) commitsByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.CommitsByUser(r.Context(), hashedToken(r), id))
}

// mergeRequests returns all merge requests, or those created between the start
// and end query parameters when both are given.
// GET /projects/{id}/merge-requests?start=2024-01-01&end=2024-02-01
func (h *Handler) mergeRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}

	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start != "" && end != "" {
		res := h.analyzer.MergeRequestsInRange(r.Context(), hashedToken(r), id, start, end)
		if !res.OK && res.Error != analyzer.MsgInvalidToken && res.Error != analyzer.MsgInvalidProjectID {
			h.respondWithJSON(w, http.StatusBadRequest, res)
			return
		}
		respond(h, w, http.StatusOK, res)
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.AllMergeRequests(r.Context(), hashedToken(r), id))
}

func (h *Handler) mergeRequestsByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.MergeRequestsByUser(r.Context(), hashedToken(r), id))
}

// mergeRequest returns a single merge request by iid.
// GET /projects/{id}/merge-requests/{iid}
func (h *Handler) mergeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	iid, err := strconv.Atoi(chi.URLParam(r, "iid"))
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, analyzer.Failure[models.Document]("Invalid merge request IID"))
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.MergeRequest(r.Context(), hashedToken(r), id, iid))
}

// codeDiff returns a single code-diff artifact.
// GET /projects/{id}/code-diffs/{diffID}
func (h *Handler) codeDiff(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	diffID, err := strconv.Atoi(chi.URLParam(r, "diffID"))
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, analyzer.Failure[models.Document]("Invalid code diff ID"))
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.CodeDiff(r.Context(), hashedToken(r), id, diffID))
}

func (h *Handler) issues(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.Issues(r.Context(), hashedToken(r), id))
}

func (h *Handler) comments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.Comments(r.Context(), hashedToken(r), id))
}

func (h *Handler) commentsByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	respond(h, w, http.StatusOK, h.analyzer.CommentsByUser(r.Context(), hashedToken(r), id))
}

func hashedToken(r *http.Request) string {
	return r.Header.Get(HashedTokenHeader)
}

func (h *Handler) projectID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, analyzer.Failure[struct{}](analyzer.MsgInvalidProjectID))
		return 0, false
	}
	return id, true
}

// respond writes res with okStatus on success or the status matching its error.
func respond[T any](h *Handler, w http.ResponseWriter, okStatus int, res analyzer.Result[T]) {
	status := okStatus
	switch {
	case res.OK:
	case res.Error == analyzer.MsgInvalidToken:
		status = http.StatusUnauthorized
	case res.Error == analyzer.MsgInvalidProjectID:
		status = http.StatusNotFound
	default:
		status = http.StatusBadGateway
	}
	h.respondWithJSON(w, status, res)
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		h.log.Warn("Failed to write response", zap.Error(err))
	}
}
