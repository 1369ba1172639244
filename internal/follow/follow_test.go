package follow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kcosr/symgrep/internal/engine"
	"github.com/kcosr/symgrep/internal/model"
)

const callSource = `package graph

func foo() {
	bar()
	baz()
}

func bar() {}

func baz() {}

func qux() {
	foo()
}
`

func setup(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "graph.go"), []byte(callSource), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return engine.New(logger), root
}

func edgeNames(edges []model.FollowEdge) []string {
	names := make([]string, 0, len(edges))
	for _, e := range edges {
		names = append(names, e.Symbol.Name)
	}
	return names
}

// Scenario: callees of foo are bar and baz; its caller is qux.
func TestFollowCallees(t *testing.T) {
	eng, root := setup(t)
	result, err := Run(context.Background(), eng, Config{
		Pattern:   "name:foo kind:function",
		Direction: model.FollowCallees,
		Paths:     []string{root},
		Literal:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Version != model.FollowResultVersion {
		t.Errorf("version = %s", result.Version)
	}
	if result.Direction != model.FollowCallees {
		t.Errorf("direction = %s", result.Direction)
	}
	if len(result.Targets) != 1 {
		t.Fatalf("targets = %+v", result.Targets)
	}
	target := result.Targets[0]
	if target.Symbol.Name != "foo" {
		t.Errorf("target = %+v", target.Symbol)
	}
	names := edgeNames(target.Callees)
	if len(names) != 2 || names[0] != "bar" || names[1] != "baz" {
		t.Errorf("callees = %v", names)
	}
	if len(target.Callers) != 0 {
		t.Errorf("callers should be absent: %+v", target.Callers)
	}
	for _, edge := range target.Callees {
		if len(edge.CallSites) != 1 || edge.CallSites[0].File != "graph.go" {
			t.Errorf("call sites = %+v", edge.CallSites)
		}
	}
}

func TestFollowCallers(t *testing.T) {
	eng, root := setup(t)
	result, err := Run(context.Background(), eng, Config{
		Pattern:   "name:foo kind:function",
		Direction: model.FollowCallers,
		Paths:     []string{root},
		Literal:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Targets) != 1 {
		t.Fatalf("targets = %+v", result.Targets)
	}
	callers := result.Targets[0].Callers
	if len(callers) != 1 || callers[0].Symbol.Name != "qux" {
		t.Fatalf("callers = %+v", callers)
	}
	site := callers[0].CallSites[0]
	if site.Line != 13 {
		t.Errorf("call site line = %d, want 13", site.Line)
	}
	if site.Column != 2 {
		t.Errorf("call site column = %d, want 2", site.Column)
	}
}

func TestFollowBoth(t *testing.T) {
	eng, root := setup(t)
	result, err := Run(context.Background(), eng, Config{
		Pattern: "name:foo kind:function",
		Paths:   []string{root},
		Literal: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Direction != model.FollowBoth {
		t.Errorf("default direction = %s", result.Direction)
	}
	target := result.Targets[0]
	if len(target.Callees) != 2 || len(target.Callers) != 1 {
		t.Errorf("both edges = %+v", target)
	}
}

func TestFollowLimitCapsTargets(t *testing.T) {
	eng, root := setup(t)
	one := 1
	result, err := Run(context.Background(), eng, Config{
		Pattern:   "kind:function",
		Direction: model.FollowCallees,
		Paths:     []string{root},
		Limit:     &one,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Targets) != 1 {
		t.Errorf("targets = %d, want 1", len(result.Targets))
	}
	// The single target keeps every edge; the limit never trims edges.
	if result.Targets[0].Symbol.Name == "foo" && len(result.Targets[0].Callees) != 2 {
		t.Errorf("edges were trimmed: %+v", result.Targets[0])
	}
}

func TestFollowBadDirection(t *testing.T) {
	eng, root := setup(t)
	if _, err := Run(context.Background(), eng, Config{
		Pattern:   "name:foo",
		Direction: "sideways",
		Paths:     []string{root},
	}); err == nil {
		t.Fatal("unknown direction must fail")
	}
}
