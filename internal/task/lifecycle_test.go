package task

import (
	"testing"

	"chorebank/internal/fault"
	"chorebank/internal/model"
)

func TestMarkDoneFromTodo(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskTodo, AssignedToID: "kid1"}

	if err := MarkDone(tk, "kid1"); err != nil {
		t.Fatalf("mark done: %v", err)
	}
}

func TestMarkDoneFromPending(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskPending, AssignedToID: "kid1"}

	err := MarkDone(tk, "kid1")
	if !fault.IsKind(err, fault.InvalidTransition) {
		t.Errorf("err = %v, want InvalidTransition", err)
	}
}

func TestMarkDoneFromApproved(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskApproved, AssignedToID: "kid1"}

	err := MarkDone(tk, "kid1")
	if !fault.IsKind(err, fault.InvalidTransition) {
		t.Errorf("err = %v, want InvalidTransition", err)
	}
}

func TestMarkDoneWrongActor(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskTodo, AssignedToID: "kid1"}

	err := MarkDone(tk, "kid2")
	if !fault.IsKind(err, fault.Unauthorized) {
		t.Errorf("err = %v, want Unauthorized", err)
	}
}

func TestApproveFromPending(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskPending, ParentID: "dad"}

	if err := Approve(tk, "dad"); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func TestApproveFromTodo(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskTodo, ParentID: "dad"}

	err := Approve(tk, "dad")
	if !fault.IsKind(err, fault.InvalidTransition) {
		t.Errorf("err = %v, want InvalidTransition", err)
	}
}

func TestApproveFromApproved(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskApproved, ParentID: "dad"}

	err := Approve(tk, "dad")
	if !fault.IsKind(err, fault.InvalidTransition) {
		t.Errorf("err = %v, want InvalidTransition", err)
	}
}

func TestApproveWrongGuardian(t *testing.T) {
	tk := model.Task{ID: "t1", Title: "Wash dishes", Status: model.TaskPending, ParentID: "dad"}

	err := Approve(tk, "neighbor")
	if !fault.IsKind(err, fault.Unauthorized) {
		t.Errorf("err = %v, want Unauthorized", err)
	}
}

func TestValidateNew(t *testing.T) {
	if err := ValidateNew("Vacuum", 10, "kid1"); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := ValidateNew("  ", 10, "kid1"); !fault.IsKind(err, fault.Validation) {
		t.Errorf("blank title: err = %v, want Validation", err)
	}
	if err := ValidateNew("Vacuum", 10, ""); !fault.IsKind(err, fault.Validation) {
		t.Errorf("missing assignee: err = %v, want Validation", err)
	}
	if err := ValidateNew("Vacuum", -1, "kid1"); !fault.IsKind(err, fault.Validation) {
		t.Errorf("negative points: err = %v, want Validation", err)
	}
}

func TestParsePoints(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"25", 25},
		{" 10 ", 10},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-5", 0},
		{"3.5", 0},
	}
	for _, c := range cases {
		if got := ParsePoints(c.in); got != c.want {
			t.Errorf("ParsePoints(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
