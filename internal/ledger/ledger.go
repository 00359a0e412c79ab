// Package ledger derives a dependent's point balance from the two record
// streams that feed it: tasks and redemptions. The balance is never stored or
// accumulated incrementally — every call recomputes from the authoritative
// collections, so the result can't drift from them.
package ledger

import (
	"chorebank/internal/fault"
	"chorebank/internal/model"
)

// Earned sums the points of approved tasks. Tasks in any other status
// contribute nothing.
func Earned(tasks []model.Task) int {
	total := 0
	for _, t := range tasks {
		if t.Status == model.TaskApproved {
			total += t.Points
		}
	}
	return total
}

// Spent sums the snapshotted cost of every redemption.
func Spent(redemptions []model.Redemption) int {
	total := 0
	for _, r := range redemptions {
		total += r.Cost
	}
	return total
}

// Balance is earned minus spent. Not floored at zero: if approved tasks were
// later deleted the arithmetic can go negative, and affordability checks need
// to see that reality rather than a clamped value.
func Balance(tasks []model.Task, redemptions []model.Redemption) int {
	return Earned(tasks) - Spent(redemptions)
}

// Admit decides whether a redemption of the given cost may proceed against
// the given balance. Equal is enough: a 100-point balance affords a
// 100-point reward.
func Admit(balance, cost int) error {
	if balance < cost {
		return fault.New(fault.InsufficientPoints, "Not enough points!")
	}
	return nil
}
