package mission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skillforge/skillforge/internal/domain"
)

func writeTestPack(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	packDir := filepath.Join(tmpDir, "go-v1")
	basicsDir := filepath.Join(packDir, "basics")
	if err := os.MkdirAll(basicsDir, 0755); err != nil {
		t.Fatalf("failed to create pack dirs: %v", err)
	}

	packYAML := `id: go-v1
name: Go Fundamentals
version: "1.0.0"
description: Core Go concepts
language: go
missions:
  - basics/loops
  - basics/maps
  - basics/pointers
`
	if err := os.WriteFile(filepath.Join(packDir, "pack.yaml"), []byte(packYAML), 0644); err != nil {
		t.Fatalf("failed to write pack.yaml: %v", err)
	}

	missions := map[string]string{
		"loops": `title: Looping Around
description: Practice for loops
difficulty: easy
concepts:
  - loops
xp_reward: 10
tags:
  - loops
  - control-flow
`,
		"maps": `title: Map Making
description: Practice maps
difficulty: medium
concepts:
  - maps
xp_reward: 20
tags:
  - maps
`,
		"pointers": `title: Point Taken
description: Practice pointers
difficulty: hard
concepts:
  - pointers
xp_reward: 30
tags:
  - pointers
`,
	}
	for slug, content := range missions {
		path := filepath.Join(basicsDir, slug+".yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	return tmpDir
}

func TestLoader_LoadPack(t *testing.T) {
	loader := NewLoader(writeTestPack(t))

	pack, err := loader.LoadPack("go-v1")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}

	if pack.ID != "go-v1" {
		t.Errorf("pack.ID = %q, want %q", pack.ID, "go-v1")
	}
	if pack.Name != "Go Fundamentals" {
		t.Errorf("pack.Name = %q, want %q", pack.Name, "Go Fundamentals")
	}
	if len(pack.MissionIDs) != 3 {
		t.Fatalf("len(pack.MissionIDs) = %d, want 3", len(pack.MissionIDs))
	}
	if pack.MissionIDs[0] != "go-v1/basics/loops" {
		t.Errorf("MissionIDs[0] = %q, want %q", pack.MissionIDs[0], "go-v1/basics/loops")
	}
}

func TestLoader_LoadPack_NotFound(t *testing.T) {
	loader := NewLoader(t.TempDir())

	if _, err := loader.LoadPack("nonexistent"); err == nil {
		t.Error("LoadPack() should fail for non-existent pack")
	}
}

func TestLoader_LoadMission(t *testing.T) {
	loader := NewLoader(writeTestPack(t))

	mission, err := loader.LoadMission("go-v1", "basics/loops")
	if err != nil {
		t.Fatalf("LoadMission() error = %v", err)
	}

	if mission.ID != "go-v1/basics/loops" {
		t.Errorf("mission.ID = %q, want %q", mission.ID, "go-v1/basics/loops")
	}
	if mission.Difficulty != domain.DifficultyEasy {
		t.Errorf("mission.Difficulty = %q, want easy", mission.Difficulty)
	}
	if mission.XPReward != 10 {
		t.Errorf("mission.XPReward = %d, want 10", mission.XPReward)
	}
	if len(mission.Concepts) != 1 || mission.Concepts[0] != "loops" {
		t.Errorf("mission.Concepts = %v, want [loops]", mission.Concepts)
	}
}

func TestLoader_LoadMission_InvalidSlug(t *testing.T) {
	loader := NewLoader(writeTestPack(t))

	if _, err := loader.LoadMission("go-v1", "loops"); err == nil {
		t.Error("LoadMission() should reject a slug without a category")
	}
}

func TestRegistry_Load(t *testing.T) {
	registry := NewRegistry(NewLoader(writeTestPack(t)))

	if err := registry.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	stats := registry.Stats()
	if stats.PackCount != 1 {
		t.Errorf("PackCount = %d, want 1", stats.PackCount)
	}
	if stats.MissionCount != 3 {
		t.Errorf("MissionCount = %d, want 3", stats.MissionCount)
	}
	if stats.ByDifficulty["easy"] != 1 {
		t.Errorf("ByDifficulty[easy] = %d, want 1", stats.ByDifficulty["easy"])
	}

	ordered := registry.List()
	if len(ordered) != 3 || ordered[0].ID != "go-v1/basics/loops" {
		t.Errorf("List() first = %v, want go-v1/basics/loops", ordered[0].ID)
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := NewRegistry(NewLoader(writeTestPack(t)))
	if err := registry.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	_, err := registry.Get("go-v1/basics/channels")
	if !errors.Is(err, domain.ErrMissionNotFound) {
		t.Errorf("error = %v, want ErrMissionNotFound", err)
	}
}

func TestRegistry_AdaptiveMissions(t *testing.T) {
	registry := NewRegistry(NewLoader(writeTestPack(t)))
	if err := registry.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx := context.Background()

	missions, err := registry.AdaptiveMissions(ctx, []string{"maps", "pointers"}, nil, 5)
	if err != nil {
		t.Fatalf("AdaptiveMissions() error = %v", err)
	}
	if len(missions) != 2 {
		t.Fatalf("len(missions) = %d, want 2", len(missions))
	}
	if missions[0].ID != "go-v1/basics/maps" {
		t.Errorf("missions[0].ID = %q, want go-v1/basics/maps", missions[0].ID)
	}

	// Completed missions are excluded.
	missions, err = registry.AdaptiveMissions(ctx, []string{"maps", "pointers"}, []string{"go-v1/basics/maps"}, 5)
	if err != nil {
		t.Fatalf("AdaptiveMissions() error = %v", err)
	}
	if len(missions) != 1 || missions[0].ID != "go-v1/basics/pointers" {
		t.Errorf("missions = %v, want [go-v1/basics/pointers]", missions)
	}

	// The cap is honored.
	missions, err = registry.AdaptiveMissions(ctx, []string{"loops", "maps", "pointers"}, nil, 2)
	if err != nil {
		t.Fatalf("AdaptiveMissions() error = %v", err)
	}
	if len(missions) != 2 {
		t.Errorf("len(missions) = %d, want 2 (capped)", len(missions))
	}
}

func TestRegistry_NextMission(t *testing.T) {
	registry := NewRegistry(NewLoader(writeTestPack(t)))
	if err := registry.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx := context.Background()

	next, err := registry.NextMission(ctx, nil)
	if err != nil {
		t.Fatalf("NextMission() error = %v", err)
	}
	if next.ID != "go-v1/basics/loops" {
		t.Errorf("next.ID = %q, want go-v1/basics/loops", next.ID)
	}

	next, err = registry.NextMission(ctx, []string{"go-v1/basics/loops", "go-v1/basics/maps"})
	if err != nil {
		t.Fatalf("NextMission() error = %v", err)
	}
	if next.ID != "go-v1/basics/pointers" {
		t.Errorf("next.ID = %q, want go-v1/basics/pointers", next.ID)
	}

	_, err = registry.NextMission(ctx, []string{
		"go-v1/basics/loops", "go-v1/basics/maps", "go-v1/basics/pointers",
	})
	if !errors.Is(err, domain.ErrMissionNotFound) {
		t.Errorf("error = %v, want ErrMissionNotFound when catalog exhausted", err)
	}
}
