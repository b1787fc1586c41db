package cache

import (
	"testing"
	"time"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/pkg/testsupport"
)

// keyScenarios is the shape of testdata/key_scenarios.json.
type keyScenarios struct {
	Scenarios []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Cases       []struct {
			Prefix      string                       `json:"prefix"`
			Normalize   bool                         `json:"normalize"`
			Fields      testsupport.ConditionFixture `json:"fields"`
			ExpectedKey string                       `json:"expectedKey"`
		} `json:"cases"`
	} `json:"scenarios"`
}

func TestKeyBuilder_Fixtures(t *testing.T) {
	var fixtures keyScenarios
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("key_scenarios.json"), &fixtures)

	if len(fixtures.Scenarios) == 0 {
		t.Fatal("expected fixture scenarios")
	}

	for _, sc := range fixtures.Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			for _, tc := range sc.Cases {
				got := NewKeyBuilder(tc.Prefix, tc.Normalize).Build(tc.Fields.Condition())
				if got != tc.ExpectedKey {
					t.Errorf("expected key %q, got %q", tc.ExpectedKey, got)
				}
			}
		})
	}
}

func TestKeyBuilder_OrderSensitivity(t *testing.T) {
	ab := entity.Where("a", 1).And("b", 2)
	ba := entity.Where("b", 2).And("a", 1)

	plain := NewKeyBuilder("P", false)
	if plain.Build(ab) == plain.Build(ba) {
		t.Error("expected different keys for different field order")
	}

	normalized := NewKeyBuilder("P", true)
	if normalized.Build(ab) != normalized.Build(ba) {
		t.Errorf("expected normalized keys to match, got %q and %q", normalized.Build(ab), normalized.Build(ba))
	}
}

func TestKeyBuilder_Deterministic(t *testing.T) {
	b := NewKeyBuilder("App|order", false)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cond := entity.Where("placed_at", ts).And("total", 9.5)

	first := b.Build(cond)
	for i := 0; i < 10; i++ {
		if got := b.Build(cond); got != first {
			t.Fatalf("expected stable key %q, got %q", first, got)
		}
	}
	if first != "App|order|placed_at_2024-05-01T10:00:00Z|total_9.5" {
		t.Errorf("unexpected key %q", first)
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		app, unique, want string
	}{
		{"App", "|user", "App|user"},
		{"App", "", "App"},
		{"", "|user", ""},
	}

	for _, tt := range tests {
		if got := Prefix(tt.app, tt.unique); got != tt.want {
			t.Errorf("Prefix(%q, %q): expected %q, got %q", tt.app, tt.unique, tt.want, got)
		}
	}
}

func TestReference(t *testing.T) {
	marker := Reference("u1")
	if marker != "#refId_u1" {
		t.Fatalf("expected marker #refId_u1, got %q", marker)
	}

	id, ok := ParseReference(marker)
	if !ok || id != "u1" {
		t.Errorf("expected to parse u1, got %q %v", id, ok)
	}

	if _, ok := ParseReference(`{"id":"u1"}`); ok {
		t.Error("expected a direct entry not to parse as a reference")
	}
}

func BenchmarkKeyBuilder(b *testing.B) {
	kb := NewKeyBuilder("App|user", false)
	cond := entity.Where("email", "a@x.com").And("name", "Ada")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		kb.Build(cond)
	}
}
