// Package guardian implements the guardian-side session: live projections
// of linked children, owned tasks, and the reward catalog, plus the commands
// that mutate them. All writes are scoped to the guardian's own records.
package guardian

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chorebank/internal/fault"
	"chorebank/internal/model"
	"chorebank/internal/projection"
	"chorebank/internal/store"
	"chorebank/internal/task"
)

// Session is the long-lived state for one signed-in guardian.
type Session struct {
	store  store.Store
	logger *slog.Logger
	userID string

	children *projection.Projection[model.User]
	tasks    *projection.Projection[model.Task]
	rewards  *projection.Projection[model.Reward]

	mu      sync.Mutex
	errMsg  string
	success string
	closed  bool
}

// Open starts a session for the given guardian. It returns once all three
// projections have delivered their first snapshot.
func Open(ctx context.Context, st store.Store, userID string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		store:  st,
		logger: logger,
		userID: userID,
	}

	var err error
	s.children, err = projection.Open(ctx, st,
		store.Query{Collection: store.CollectionUsers, Field: "parentId", Value: userID},
		store.DecodeUser, nil)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.tasks, err = projection.Open(ctx, st,
		store.Query{Collection: store.CollectionTasks, Field: "parentId", Value: userID, OrderBy: "createdAt"},
		store.DecodeTask, nil)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.rewards, err = projection.Open(ctx, st,
		store.Query{Collection: store.CollectionRewards, Field: "parentId", Value: userID},
		store.DecodeReward, nil)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Children returns the dependents currently linked to this guardian.
func (s *Session) Children() []model.User { return s.children.Items() }

// Tasks returns every task this guardian owns, in creation order.
func (s *Session) Tasks() []model.Task { return s.tasks.Items() }

// Rewards returns this guardian's reward catalog.
func (s *Session) Rewards() []model.Reward { return s.rewards.Items() }

// LinkChild attaches the dependent with the given email to this guardian.
// An existing link to another guardian is overwritten.
func (s *Session) LinkChild(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	recs, err := s.store.Query(ctx, store.Query{
		Collection: store.CollectionUsers, Field: "email", Value: email,
	})
	if err != nil {
		werr := fault.Wrap(fault.Remote, "could not reach the store", err)
		s.setError(werr)
		return werr
	}
	if len(recs) == 0 {
		werr := fault.New(fault.NotFound, "no user with that email")
		s.setError(werr)
		return werr
	}
	child := store.DecodeUser(recs[0])
	if child.Role != model.RoleDependent {
		werr := fault.New(fault.Validation, "this account is not a child account")
		s.setError(werr)
		return werr
	}

	if err := s.store.Patch(ctx, store.CollectionUsers, child.ID, store.Doc{"parentId": s.userID}); err != nil {
		werr := fault.Wrap(fault.Remote, "could not link the account", err)
		s.setError(werr)
		return werr
	}
	s.setSuccess("Linked " + child.Email + "!")
	s.logger.Info("child linked", "guardian_id", s.userID, "child_id", child.ID)
	return nil
}

// UnlinkChild detaches the dependent from this guardian by clearing its
// parent reference. Only a currently-linked child can be unlinked.
func (s *Session) UnlinkChild(ctx context.Context, childID string) error {
	if !s.hasChild(childID) {
		err := fault.New(fault.NotFound, "child not found")
		s.setError(err)
		return err
	}
	if err := s.store.Patch(ctx, store.CollectionUsers, childID, store.Doc{"parentId": ""}); err != nil {
		werr := fault.Wrap(fault.Remote, "could not unlink the account", err)
		s.setError(werr)
		return werr
	}
	s.logger.Info("child unlinked", "guardian_id", s.userID, "child_id", childID)
	return nil
}

// CreateTask creates a new todo task assigned to one of this guardian's
// linked children. The assignee's email is denormalized onto the task.
func (s *Session) CreateTask(ctx context.Context, title string, points int, assignedToID string) error {
	if err := task.ValidateNew(title, points, assignedToID); err != nil {
		s.setError(err)
		return err
	}
	child, ok := s.findChild(assignedToID)
	if !ok {
		err := fault.New(fault.NotFound, "child not found")
		s.setError(err)
		return err
	}

	t := model.Task{
		Title:           strings.TrimSpace(title),
		Points:          points,
		Status:          model.TaskTodo,
		AssignedToID:    child.ID,
		AssignedToEmail: child.Email,
		ParentID:        s.userID,
		CreatedAt:       time.Now(),
	}
	if _, err := s.store.Create(ctx, store.CollectionTasks, store.EncodeTask(t)); err != nil {
		werr := fault.Wrap(fault.Remote, "could not create the task", err)
		s.setError(werr)
		return werr
	}
	s.setSuccess("Task created!")
	return nil
}

// ApproveTask moves a pending task to approved, which is the only point at
// which its points become earned. There is no reverse transition.
func (s *Session) ApproveTask(ctx context.Context, taskID string) error {
	t, ok := s.findTask(taskID)
	if !ok {
		err := fault.New(fault.NotFound, "task not found")
		s.setError(err)
		return err
	}
	if err := task.Approve(t, s.userID); err != nil {
		s.setError(err)
		return err
	}

	if err := s.store.Patch(ctx, store.CollectionTasks, taskID, store.Doc{"status": string(model.TaskApproved)}); err != nil {
		werr := fault.Wrap(fault.Remote, "could not approve the task", err)
		s.setError(werr)
		return werr
	}
	s.setSuccess("Task approved!")
	return nil
}

// DeleteTask removes a task outright. If it was already approved its point
// credit disappears from the child's balance on the next recomputation.
func (s *Session) DeleteTask(ctx context.Context, taskID string) error {
	if _, ok := s.findTask(taskID); !ok {
		err := fault.New(fault.NotFound, "task not found")
		s.setError(err)
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionTasks, taskID); err != nil {
		werr := fault.Wrap(fault.Remote, "could not delete the task", err)
		s.setError(werr)
		return werr
	}
	return nil
}

// AddReward adds a reward to this guardian's catalog.
func (s *Session) AddReward(ctx context.Context, title string, cost int) error {
	title = strings.TrimSpace(title)
	if title == "" {
		err := fault.New(fault.Validation, "reward title cannot be blank")
		s.setError(err)
		return err
	}
	if cost < 0 {
		err := fault.New(fault.Validation, "reward cost cannot be negative")
		s.setError(err)
		return err
	}

	w := model.Reward{Title: title, Cost: cost, ParentID: s.userID}
	if _, err := s.store.Create(ctx, store.CollectionRewards, store.EncodeReward(w)); err != nil {
		werr := fault.Wrap(fault.Remote, "could not add the reward", err)
		s.setError(werr)
		return werr
	}
	s.setSuccess("Reward added!")
	return nil
}

// DeleteReward removes a reward from the catalog. Past redemptions keep
// their own snapshotted title and cost and are unaffected.
func (s *Session) DeleteReward(ctx context.Context, rewardID string) error {
	if !s.hasReward(rewardID) {
		err := fault.New(fault.NotFound, "reward not found")
		s.setError(err)
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionRewards, rewardID); err != nil {
		werr := fault.Wrap(fault.Remote, "could not delete the reward", err)
		s.setError(werr)
		return werr
	}
	return nil
}

// Messages returns the pending error and success messages for display.
func (s *Session) Messages() (errMsg, successMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg, s.success
}

// AckMessage clears both message fields.
func (s *Session) AckMessage() {
	s.mu.Lock()
	s.errMsg = ""
	s.success = ""
	s.mu.Unlock()
}

// Close tears down all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.children != nil {
		s.children.Close()
	}
	if s.tasks != nil {
		s.tasks.Close()
	}
	if s.rewards != nil {
		s.rewards.Close()
	}
}

func (s *Session) findChild(id string) (model.User, bool) {
	for _, c := range s.Children() {
		if c.ID == id {
			return c, true
		}
	}
	return model.User{}, false
}

func (s *Session) hasChild(id string) bool {
	_, ok := s.findChild(id)
	return ok
}

func (s *Session) findTask(id string) (model.Task, bool) {
	for _, t := range s.Tasks() {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (s *Session) hasReward(id string) bool {
	for _, w := range s.Rewards() {
		if w.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	if !s.closed {
		s.errMsg = fault.MessageOf(err)
	}
	s.mu.Unlock()
}

func (s *Session) setSuccess(msg string) {
	s.mu.Lock()
	if !s.closed {
		s.success = msg
	}
	s.mu.Unlock()
}
