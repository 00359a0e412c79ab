package store

import (
	"time"

	"chorebank/internal/model"
)

// Conversions between model types and raw documents. Times travel as
// milliseconds since epoch (int64), matching the original wire format of the
// collections; numbers may come back from a backend as int, int64, or
// float64, so reads go through asInt/asInt64.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	return int(asInt64(v))
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	ms := asInt64(v)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func EncodeUser(u model.User) Doc {
	return Doc{
		"email":    u.Email,
		"role":     string(u.Role),
		"parentId": u.ParentID,
	}
}

func DecodeUser(r Record) model.User {
	return model.User{
		ID:       r.ID,
		Email:    asString(r.Data["email"]),
		Role:     model.Role(asString(r.Data["role"])),
		ParentID: asString(r.Data["parentId"]),
	}
}

func EncodeTask(t model.Task) Doc {
	return Doc{
		"title":           t.Title,
		"points":          int64(t.Points),
		"status":          string(t.Status),
		"assignedToId":    t.AssignedToID,
		"assignedToEmail": t.AssignedToEmail,
		"parentId":        t.ParentID,
		"createdAt":       t.CreatedAt.UnixMilli(),
	}
}

func DecodeTask(r Record) model.Task {
	return model.Task{
		ID:              r.ID,
		Title:           asString(r.Data["title"]),
		Points:          asInt(r.Data["points"]),
		Status:          model.TaskStatus(asString(r.Data["status"])),
		AssignedToID:    asString(r.Data["assignedToId"]),
		AssignedToEmail: asString(r.Data["assignedToEmail"]),
		ParentID:        asString(r.Data["parentId"]),
		CreatedAt:       asTime(r.Data["createdAt"]),
	}
}

func EncodeReward(w model.Reward) Doc {
	return Doc{
		"title":    w.Title,
		"cost":     int64(w.Cost),
		"parentId": w.ParentID,
	}
}

func DecodeReward(r Record) model.Reward {
	return model.Reward{
		ID:       r.ID,
		Title:    asString(r.Data["title"]),
		Cost:     asInt(r.Data["cost"]),
		ParentID: asString(r.Data["parentId"]),
	}
}

func EncodeRedemption(rd model.Redemption) Doc {
	return Doc{
		"childId":     rd.ChildID,
		"parentId":    rd.ParentID,
		"rewardTitle": rd.RewardTitle,
		"cost":        int64(rd.Cost),
		"status":      rd.Status,
		"timestamp":   rd.Timestamp.UnixMilli(),
	}
}

func DecodeRedemption(r Record) model.Redemption {
	return model.Redemption{
		ID:          r.ID,
		ChildID:     asString(r.Data["childId"]),
		ParentID:    asString(r.Data["parentId"]),
		RewardTitle: asString(r.Data["rewardTitle"]),
		Cost:        asInt(r.Data["cost"]),
		Status:      asString(r.Data["status"]),
		Timestamp:   asTime(r.Data["timestamp"]),
	}
}
