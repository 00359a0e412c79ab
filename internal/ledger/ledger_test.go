package ledger

import (
	"testing"

	"chorebank/internal/fault"
	"chorebank/internal/model"
)

func TestBalance(t *testing.T) {
	tasks := []model.Task{
		{ID: "t1", Points: 10, Status: model.TaskApproved},
		{ID: "t2", Points: 20, Status: model.TaskApproved},
	}
	redemptions := []model.Redemption{
		{ID: "r1", Cost: 5},
	}

	if got := Balance(tasks, redemptions); got != 25 {
		t.Errorf("balance = %d, want 25", got)
	}
}

func TestBalanceIgnoresUnapproved(t *testing.T) {
	tasks := []model.Task{
		{ID: "t1", Points: 10, Status: model.TaskApproved},
		{ID: "t2", Points: 50, Status: model.TaskPending},
		{ID: "t3", Points: 30, Status: model.TaskTodo},
	}

	if got := Balance(tasks, nil); got != 10 {
		t.Errorf("balance = %d, want 10", got)
	}
}

func TestBalanceEmpty(t *testing.T) {
	if got := Balance(nil, nil); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestBalanceCanGoNegative(t *testing.T) {
	// Approved task deleted after a redemption: spend now exceeds earnings.
	// The ledger reports the true arithmetic result, no clamping.
	redemptions := []model.Redemption{
		{ID: "r1", Cost: 40},
	}

	if got := Balance(nil, redemptions); got != -40 {
		t.Errorf("balance = %d, want -40", got)
	}
}

func TestBalanceRecomputesFromCollections(t *testing.T) {
	tasks := []model.Task{{ID: "t1", Points: 100, Status: model.TaskApproved}}
	var redemptions []model.Redemption

	if got := Balance(tasks, redemptions); got != 100 {
		t.Fatalf("balance = %d, want 100", got)
	}

	// A new redemption snapshot replaces the collection wholesale; the next
	// computation must reflect it exactly with no residual state.
	redemptions = []model.Redemption{{ID: "r1", Cost: 100}}
	if got := Balance(tasks, redemptions); got != 0 {
		t.Errorf("balance after redemption = %d, want 0", got)
	}
}

func TestAdmitExactBalance(t *testing.T) {
	if err := Admit(100, 100); err != nil {
		t.Errorf("admit at exact balance: %v", err)
	}
}

func TestAdmitInsufficient(t *testing.T) {
	err := Admit(99, 100)
	if !fault.IsKind(err, fault.InsufficientPoints) {
		t.Errorf("err = %v, want InsufficientPoints", err)
	}
}

func TestAdmitZeroCost(t *testing.T) {
	if err := Admit(0, 0); err != nil {
		t.Errorf("admit zero-cost reward: %v", err)
	}
}
