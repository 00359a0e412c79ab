package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"chorebank/internal/auth"
	"chorebank/internal/guardian"
	"chorebank/internal/model"
	"chorebank/internal/task"
	"chorebank/internal/websocket"
)

type GuardianHandler struct {
	sessions *guardian.Manager
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewGuardianHandler(m *guardian.Manager, hub *websocket.Hub, logger *slog.Logger) *GuardianHandler {
	return &GuardianHandler{sessions: m, hub: hub, logger: logger}
}

func (h *GuardianHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *GuardianHandler) session(w http.ResponseWriter, r *http.Request) (*guardian.Session, bool) {
	s, err := h.sessions.Session(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("open guardian session", "error", err)
		writeFault(w, err)
		return nil, false
	}
	return s, true
}

func (h *GuardianHandler) Children(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	kids := s.Children()
	if kids == nil {
		kids = []model.User{}
	}
	writeJSON(w, http.StatusOK, kids)
}

type linkChildRequest struct {
	Email string `json:"email"`
}

func (h *GuardianHandler) LinkChild(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req linkChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.LinkChild(r.Context(), req.Email); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("user", "linked", "", map[string]any{"email": req.Email}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

func (h *GuardianHandler) UnlinkChild(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.UnlinkChild(r.Context(), id); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("user", "unlinked", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

func (h *GuardianHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	tasks := s.Tasks()
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title        string          `json:"title"`
	Points       json.RawMessage `json:"points"`
	AssignedToID string          `json:"assignedToId"`
}

// taskPoints is lenient the way a points text field is: numbers and numeric
// strings are taken as-is, anything else defaults to zero.
func taskPoints(raw json.RawMessage) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return task.ParsePoints(s)
	}
	return 0
}

func (h *GuardianHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.CreateTask(r.Context(), req.Title, taskPoints(req.Points), req.AssignedToID); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("task", "created", "", map[string]any{"assignedToId": req.AssignedToID}))
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *GuardianHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.ApproveTask(r.Context(), id); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("task", "approved", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.TaskApproved)})
}

func (h *GuardianHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.DeleteTask(r.Context(), id); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *GuardianHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rewards := s.Rewards()
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

type addRewardRequest struct {
	Title string `json:"title"`
	Cost  int    `json:"cost"`
}

func (h *GuardianHandler) AddReward(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.AddReward(r.Context(), req.Title, req.Cost); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("reward", "created", "", nil))
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *GuardianHandler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.DeleteReward(r.Context(), id); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// AckMessage clears the session's pending display messages.
func (h *GuardianHandler) AckMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.AckMessage()
	w.WriteHeader(http.StatusNoContent)
}
