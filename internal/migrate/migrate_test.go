package migrate

import (
	"errors"
	"strings"
	"testing"
)

func appendTo(key string) func(map[string]any) error {
	return func(doc map[string]any) error {
		doc["trail"] = doc["trail"].(string) + key
		return nil
	}
}

// ///////////////////////////////////////////////
// Upgrade
// ///////////////////////////////////////////////

func TestUpgrade_RunsPendingInOrder(t *testing.T) {
	c := &Chain{Target: "test", Latest: 4}
	c.Add(Step{To: 4, Name: "three to four", Apply: appendTo("4")})
	c.Add(Step{To: 2, Name: "one to two", Apply: appendTo("2")})
	c.Add(Step{To: 3, Name: "two to three", Apply: appendTo("3")})

	tests := []struct {
		from      int
		wantTrail string
		wantAt    int
	}{
		{1, "234", 4},
		{2, "34", 4},
		{4, "", 4},
		{9, "", 9},
	}
	for _, tt := range tests {
		doc := map[string]any{"trail": ""}
		at, err := c.Upgrade(doc, tt.from)
		if err != nil {
			t.Fatalf("from %d: %v", tt.from, err)
		}
		if at != tt.wantAt || doc["trail"] != tt.wantTrail {
			t.Errorf("from %d: at=%d trail=%q, want %d %q", tt.from, at, doc["trail"], tt.wantAt, tt.wantTrail)
		}
	}
}

func TestUpgrade_StopsAtFailingStep(t *testing.T) {
	boom := errors.New("boom")
	c := &Chain{Target: "config", Latest: 3}
	c.Add(Step{To: 2, Name: "rename", Apply: appendTo("2")})
	c.Add(Step{To: 3, Name: "split", Apply: func(map[string]any) error { return boom }})

	doc := map[string]any{"trail": ""}
	at, err := c.Upgrade(doc, 1)
	if at != 2 {
		t.Errorf("at = %d, want 2", at)
	}
	var se *StepError
	if !errors.As(err, &se) || se.To != 3 || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "config migration to v3 (split)") {
		t.Errorf("message = %q", err.Error())
	}
	if doc["trail"] != "2" {
		t.Errorf("trail = %q", doc["trail"])
	}
}

// ///////////////////////////////////////////////
// Add / Pending
// ///////////////////////////////////////////////

func TestAdd_Panics(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{"duplicate", Step{To: 2, Name: "again"}},
		{"past latest", Step{To: 5, Name: "future"}},
		{"first version", Step{To: 1, Name: "nothing to upgrade from"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Chain{Target: "t", Latest: 3}
			c.Add(Step{To: 2, Name: "first"})
			defer func() {
				if recover() == nil {
					t.Fatal("Add did not panic")
				}
			}()
			c.Add(tt.step)
		})
	}
}

func TestPending(t *testing.T) {
	c := &Chain{Target: "t", Latest: 3}
	c.Add(Step{To: 3, Name: "b"})
	c.Add(Step{To: 2, Name: "a"})

	if got := c.Pending(1); len(got) != 2 || got[0].Name != "a" {
		t.Errorf("Pending(1) = %+v", got)
	}
	if got := c.Pending(3); len(got) != 0 {
		t.Errorf("Pending(3) = %+v", got)
	}
}
