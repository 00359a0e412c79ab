package model

// Reward is a catalog entry a dependent can spend points on. Owned by the
// guardian in ParentID; never visible across guardians.
type Reward struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Cost     int    `json:"cost"`
	ParentID string `json:"parentId"`
}
