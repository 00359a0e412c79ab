package model

// Role determines which side of the guardian/dependent relationship an
// account is on. Set at registration, never changed afterwards.
type Role string

const (
	RoleGuardian  Role = "guardian"
	RoleDependent Role = "dependent"
)

// User is an account document. A dependent's ParentID points at the guardian
// it is linked to; an empty ParentID means the dependent is unlinked and
// cannot redeem rewards.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	ParentID string `json:"parentId"`
}

// Linked reports whether a dependent has a guardian assigned.
func (u User) Linked() bool {
	return u.ParentID != ""
}
