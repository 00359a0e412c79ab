// Package dependent implements the dependent-side session: live projections
// of the account's tasks, redemptions, and the guardian's reward catalog,
// with the point balance recomputed from scratch on every snapshot.
package dependent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chorebank/internal/fault"
	"chorebank/internal/ledger"
	"chorebank/internal/model"
	"chorebank/internal/projection"
	"chorebank/internal/store"
	"chorebank/internal/task"
)

// Session is the long-lived state for one signed-in dependent. All remote
// writes go through serialized methods that read the latest local snapshot
// and issue one store write; the store's own snapshot stream closes the loop.
type Session struct {
	store  store.Store
	logger *slog.Logger
	userID string

	tasks       *projection.Projection[model.Task]
	redemptions *projection.Projection[model.Redemption]
	rewards     *projection.Projection[model.Reward]

	mu        sync.Mutex
	taskItems []model.Task
	redItems  []model.Redemption
	balance   int
	errMsg    string
	success   string
	closed    bool

	// inflight holds redemptions this session has written but not yet seen
	// come back through the redemptions snapshot. Their cost is already
	// committed spend as far as admission is concerned.
	inflight map[string]int

	// redeemMu keeps at most one redemption in flight per session. The
	// store offers no cross-document transaction, so without this two
	// admission checks could both pass against the same balance.
	redeemMu sync.Mutex
}

// Open starts a session for the given dependent. It subscribes to the three
// queries that feed the session and returns once each has delivered its
// first snapshot. The rewards catalog is scoped to the guardian the
// dependent is linked to at open time; an unlinked dependent sees none.
func Open(ctx context.Context, st store.Store, userID string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		store:    st,
		logger:   logger,
		userID:   userID,
		inflight: make(map[string]int),
	}

	doc, err := st.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return nil, fault.Wrap(fault.Remote, "account lookup failed", err)
	}
	user := store.DecodeUser(store.Record{ID: userID, Data: doc})

	s.tasks, err = projection.Open(ctx, st,
		store.Query{Collection: store.CollectionTasks, Field: "assignedToId", Value: userID, OrderBy: "createdAt"},
		store.DecodeTask,
		func(items []model.Task) {
			s.mu.Lock()
			s.taskItems = items
			s.recomputeLocked()
			s.mu.Unlock()
		})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.redemptions, err = projection.Open(ctx, st,
		store.Query{Collection: store.CollectionRedemptions, Field: "childId", Value: userID, OrderBy: "timestamp"},
		store.DecodeRedemption,
		func(items []model.Redemption) {
			s.mu.Lock()
			s.redItems = items
			s.recomputeLocked()
			s.mu.Unlock()
		})
	if err != nil {
		s.Close()
		return nil, err
	}

	if user.Linked() {
		s.rewards, err = projection.Open(ctx, st,
			store.Query{Collection: store.CollectionRewards, Field: "parentId", Value: user.ParentID},
			store.DecodeReward, nil)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

// noteInflightLocked records spend that was written but may not yet have come
// back through the redemptions snapshot. If a snapshot carrying id landed
// between the write returning and this call, the cost is already in the
// balance and tracking it again would double-count it.
func (s *Session) noteInflightLocked(id string, cost int) {
	for _, r := range s.redItems {
		if r.ID == id {
			return
		}
	}
	s.inflight[id] = cost
}

// recomputeLocked rederives the balance from the current collections. Called
// under s.mu on every snapshot replace; never accumulates.
func (s *Session) recomputeLocked() {
	for _, r := range s.redItems {
		delete(s.inflight, r.ID)
	}
	s.balance = ledger.Balance(s.taskItems, s.redItems)
}

// Balance returns the current derived balance.
func (s *Session) Balance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Tasks returns the latest tasks snapshot, in creation order.
func (s *Session) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskItems
}

// Redemptions returns the latest redemptions snapshot, oldest first.
func (s *Session) Redemptions() []model.Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redItems
}

// Rewards returns the guardian's catalog as of the latest snapshot.
func (s *Session) Rewards() []model.Reward {
	if s.rewards == nil {
		return nil
	}
	return s.rewards.Items()
}

// MarkDone moves a task from todo to pending. Illegal transitions are
// rejected locally before any remote call; when the local copy allows it the
// write is issued last-write-wins, and a remote failure is surfaced rather
// than swallowed.
func (s *Session) MarkDone(ctx context.Context, taskID string) error {
	t, ok := s.findTask(taskID)
	if !ok {
		err := fault.New(fault.NotFound, "task not found")
		s.setError(err)
		return err
	}
	if err := task.MarkDone(t, s.userID); err != nil {
		s.setError(err)
		return err
	}

	err := s.store.Patch(ctx, store.CollectionTasks, taskID, store.Doc{"status": string(model.TaskPending)})
	if err != nil {
		err = fault.Wrap(fault.Remote, "could not update the task", err)
		s.setError(err)
		return err
	}
	return nil
}

// Redeem spends points on a reward. Admission is check-then-act against an
// eventually-consistent projection, so the whole path is serialized per
// session and every call re-reads the guardian link from the store first.
// A failed Redeem is never blindly retried with the same record; callers
// retry by calling Redeem again, which re-runs the full admission check.
func (s *Session) Redeem(ctx context.Context, rewardID string) error {
	s.redeemMu.Lock()
	defer s.redeemMu.Unlock()

	// The link check runs before the catalog lookup. An unlinked dependent
	// has an empty catalog, and "no guardian linked" is the answer they need,
	// not "reward not found". Fresh read, not the cached user document: the
	// guardian may have unlinked this account since the session opened.
	doc, err := s.store.Get(ctx, store.CollectionUsers, s.userID)
	if err != nil {
		werr := fault.Wrap(fault.Remote, "could not reach the store", err)
		s.setError(werr)
		return werr
	}
	user := store.DecodeUser(store.Record{ID: s.userID, Data: doc})
	if !user.Linked() {
		werr := fault.New(fault.NoGuardianLinked, "No guardian linked! Ask your guardian to connect your account.")
		s.setError(werr)
		return werr
	}

	reward, ok := s.findReward(rewardID)
	if !ok {
		err := fault.New(fault.NotFound, "reward not found")
		s.setError(err)
		return err
	}

	s.mu.Lock()
	available := s.balance
	for _, cost := range s.inflight {
		available -= cost
	}
	s.mu.Unlock()

	if err := ledger.Admit(available, reward.Cost); err != nil {
		s.setError(err)
		return err
	}

	red := model.Redemption{
		ChildID:     s.userID,
		ParentID:    user.ParentID,
		RewardTitle: reward.Title,
		Cost:        reward.Cost,
		Status:      model.RedemptionPending,
		Timestamp:   time.Now(),
	}
	id, err := s.store.Create(ctx, store.CollectionRedemptions, store.EncodeRedemption(red))
	if err != nil {
		werr := fault.Wrap(fault.Remote, "purchase failed", err)
		s.setError(werr)
		return werr
	}

	s.mu.Lock()
	s.noteInflightLocked(id, reward.Cost)
	if !s.closed {
		s.success = "Redeemed: " + reward.Title + "!"
	}
	s.mu.Unlock()

	s.logger.Info("redemption created", "child_id", s.userID, "reward", reward.Title, "cost", reward.Cost)
	return nil
}

// Messages returns the pending error and success messages for display.
func (s *Session) Messages() (errMsg, successMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg, s.success
}

// AckMessage clears both message fields. Idempotent: acknowledging twice in
// a row leaves them empty both times.
func (s *Session) AckMessage() {
	s.mu.Lock()
	s.errMsg = ""
	s.success = ""
	s.mu.Unlock()
}

// Close tears down all subscriptions. Results of commands still in flight
// are discarded as far as the message surface is concerned.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.tasks != nil {
		s.tasks.Close()
	}
	if s.redemptions != nil {
		s.redemptions.Close()
	}
	if s.rewards != nil {
		s.rewards.Close()
	}
}

func (s *Session) findTask(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.taskItems {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (s *Session) findReward(id string) (model.Reward, bool) {
	for _, w := range s.Rewards() {
		if w.ID == id {
			return w, true
		}
	}
	return model.Reward{}, false
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	if !s.closed {
		s.errMsg = fault.MessageOf(err)
	}
	s.mu.Unlock()
}
