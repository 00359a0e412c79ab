package model

import "time"

// RedemptionPending is the only status redemptions are created with. Nothing
// transitions a redemption further; the field is carried but inert.
const RedemptionPending = "pending"

// Redemption is an immutable point-spend event. Title and cost are
// snapshotted at redemption time so later edits or deletion of the Reward
// never change historical spend amounts.
type Redemption struct {
	ID          string    `json:"id"`
	ChildID     string    `json:"childId"`
	ParentID    string    `json:"parentId"`
	RewardTitle string    `json:"rewardTitle"`
	Cost        int       `json:"cost"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}
