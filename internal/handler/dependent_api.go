package handler

import (
	"log/slog"
	"net/http"

	"chorebank/internal/auth"
	"chorebank/internal/dependent"
	"chorebank/internal/model"
	"chorebank/internal/websocket"
)

type DependentHandler struct {
	sessions *dependent.Manager
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewDependentHandler(m *dependent.Manager, hub *websocket.Hub, logger *slog.Logger) *DependentHandler {
	return &DependentHandler{sessions: m, hub: hub, logger: logger}
}

func (h *DependentHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *DependentHandler) session(w http.ResponseWriter, r *http.Request) (*dependent.Session, bool) {
	s, err := h.sessions.Session(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("open dependent session", "error", err)
		writeFault(w, err)
		return nil, false
	}
	return s, true
}

type overviewResponse struct {
	Balance     int                `json:"balance"`
	Tasks       []model.Task       `json:"tasks"`
	Rewards     []model.Reward     `json:"rewards"`
	Redemptions []model.Redemption `json:"redemptions"`
	Error       string             `json:"error,omitempty"`
	Success     string             `json:"success,omitempty"`
}

// Overview returns the full dependent view in one response: balance, task
// list, reward catalog, redemption history, and any pending messages.
func (h *DependentHandler) Overview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	errMsg, success := s.Messages()
	resp := overviewResponse{
		Balance:     s.Balance(),
		Tasks:       s.Tasks(),
		Rewards:     s.Rewards(),
		Redemptions: s.Redemptions(),
		Error:       errMsg,
		Success:     success,
	}
	if resp.Tasks == nil {
		resp.Tasks = []model.Task{}
	}
	if resp.Rewards == nil {
		resp.Rewards = []model.Reward{}
	}
	if resp.Redemptions == nil {
		resp.Redemptions = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DependentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": s.Balance()})
}

// MarkDone moves one of the caller's tasks from todo to pending.
func (h *DependentHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.MarkDone(r.Context(), id); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("task", "submitted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.TaskPending)})
}

// Redeem spends points on a reward from the guardian's catalog.
func (h *DependentHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.Redeem(r.Context(), id); err != nil {
		writeFault(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("redemption", "created", id, nil))
	_, success := s.Messages()
	writeJSON(w, http.StatusOK, map[string]string{"message": success})
}

// AckMessage clears the session's pending display messages.
func (h *DependentHandler) AckMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.AckMessage()
	w.WriteHeader(http.StatusNoContent)
}
