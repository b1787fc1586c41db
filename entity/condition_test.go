package entity

import (
	"testing"
	"time"
)

type user struct {
	BaseEntity
	Name  string `json:"name"`
	Email string `json:"email"`
}

func TestCondition_AndPreservesOrder(t *testing.T) {
	cond := Where("email", "a@x.com").And("name", "Ada").And("age", 3)

	got := cond.Names()
	want := []string{"email", "name", "age"}
	if len(got) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCondition_AndReplacesExistingField(t *testing.T) {
	base := Where("email", "a@x.com").And("name", "Ada")
	cond := base.And("email", "b@x.com")

	if v, _ := cond.Get("email"); v != "b@x.com" {
		t.Errorf("expected replaced value, got %v", v)
	}
	if v, _ := base.Get("email"); v != "a@x.com" {
		t.Errorf("expected original condition untouched, got %v", v)
	}
	if cond.Names()[0] != "email" {
		t.Errorf("expected email to keep its position, got %v", cond.Names())
	}
}

func TestCondition_HasValue(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"present", ByID("u1"), true},
		{"empty string", ByID(""), false},
		{"nil value", Where("id", nil), false},
		{"missing", Where("email", "a@x.com"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.HasValue(IDField); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCondition_Sorted(t *testing.T) {
	cond := Where("name", "Ada").And("email", "a@x.com")
	sorted := cond.Sorted()

	if sorted.Names()[0] != "email" || sorted.Names()[1] != "name" {
		t.Errorf("expected sorted names, got %v", sorted.Names())
	}
	if cond.Names()[0] != "name" {
		t.Errorf("expected receiver to keep its order, got %v", cond.Names())
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var nilPtr *string
	s := "ptr"

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "a@x.com", "a@x.com"},
		{"int", 42, "42"},
		{"float from json", float64(42), "42"},
		{"bool", true, "true"},
		{"nil", nil, "null"},
		{"nil pointer", nilPtr, "null"},
		{"pointer", &s, "ptr"},
		{"time", ts, "2024-05-01T10:00:00Z"},
		{"slice", []string{"a", "b"}, "a,b"},
		{"map", map[string]int{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestApply(t *testing.T) {
	u := user{BaseEntity: BaseEntity{ID: "u1"}, Name: "Ada", Email: "a@x.com"}

	got, err := Apply(u, Patch{"name": "Tuan"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got.Name != "Tuan" || got.Email != "a@x.com" || got.ID != "u1" {
		t.Errorf("unexpected patched record: %+v", got)
	}
	if u.Name != "Ada" {
		t.Errorf("expected source record untouched, got %q", u.Name)
	}
}

func TestBaseEntity_Touch(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	var e BaseEntity
	e.Touch(first)
	e.Touch(later)

	if !e.CreatedAt.Equal(first) {
		t.Errorf("expected CreatedAt %v, got %v", first, e.CreatedAt)
	}
	if !e.UpdatedAt.Equal(later) {
		t.Errorf("expected UpdatedAt %v, got %v", later, e.UpdatedAt)
	}

	var m Mutable = &user{}
	m.SetID("u2")
	if m.GetID() != "u2" {
		t.Errorf("expected embedded SetID to assign identity, got %q", m.GetID())
	}
}
