package mission

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillforge/skillforge/internal/domain"
)

// PackFile represents the YAML structure for a mission pack
type PackFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Language    string   `yaml:"language"`
	Missions    []string `yaml:"missions"`
}

// MissionFile represents the YAML structure for a single mission
type MissionFile struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Difficulty  string   `yaml:"difficulty"`
	Concepts    []string `yaml:"concepts"`
	XPReward    int      `yaml:"xp_reward"`
	Tags        []string `yaml:"tags"`
}

// Pack groups missions in canonical order.
type Pack struct {
	ID          string
	Name        string
	Version     string
	Description string
	Language    string
	MissionIDs  []string
}

// Loader handles loading missions from YAML files
type Loader struct {
	basePath string
}

// NewLoader creates a new mission loader
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// LoadPack loads a mission pack from a directory
func (l *Loader) LoadPack(packID string) (*Pack, error) {
	packPath := filepath.Join(l.basePath, packID, "pack.yaml")

	data, err := os.ReadFile(packPath)
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var packFile PackFile
	if err := yaml.Unmarshal(data, &packFile); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}

	pack := &Pack{
		ID:          packFile.ID,
		Name:        packFile.Name,
		Version:     packFile.Version,
		Description: packFile.Description,
		Language:    packFile.Language,
		MissionIDs:  make([]string, len(packFile.Missions)),
	}

	for i, m := range packFile.Missions {
		pack.MissionIDs[i] = fmt.Sprintf("%s/%s", packID, m)
	}

	return pack, nil
}

// LoadMission loads a single mission from a YAML file
func (l *Loader) LoadMission(packID, slug string) (*domain.Mission, error) {
	if !strings.Contains(slug, "/") {
		return nil, fmt.Errorf("invalid mission slug: %s", slug)
	}

	missionPath := filepath.Join(l.basePath, packID, slug+".yaml")

	data, err := os.ReadFile(missionPath)
	if err != nil {
		return nil, fmt.Errorf("read mission file: %w", err)
	}

	var missionFile MissionFile
	if err := yaml.Unmarshal(data, &missionFile); err != nil {
		return nil, fmt.Errorf("parse mission file: %w", err)
	}

	return &domain.Mission{
		ID:          fmt.Sprintf("%s/%s", packID, slug),
		PackID:      packID,
		Title:       missionFile.Title,
		Description: missionFile.Description,
		Difficulty:  domain.Difficulty(missionFile.Difficulty),
		Concepts:    missionFile.Concepts,
		XPReward:    missionFile.XPReward,
		Tags:        missionFile.Tags,
	}, nil
}

// LoadAllPacks loads all mission packs from the base directory
func (l *Loader) LoadAllPacks() ([]*Pack, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("read missions directory: %w", err)
	}

	var packs []*Pack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		packPath := filepath.Join(l.basePath, entry.Name(), "pack.yaml")
		if _, err := os.Stat(packPath); os.IsNotExist(err) {
			continue
		}

		pack, err := l.LoadPack(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", entry.Name(), err)
		}
		packs = append(packs, pack)
	}

	return packs, nil
}

// LoadPackMissions loads all missions for a pack in pack order
func (l *Loader) LoadPackMissions(packID string) ([]*domain.Mission, error) {
	pack, err := l.LoadPack(packID)
	if err != nil {
		return nil, err
	}

	missions := make([]*domain.Mission, 0, len(pack.MissionIDs))
	for _, missionID := range pack.MissionIDs {
		slug := strings.TrimPrefix(missionID, packID+"/")

		mission, err := l.LoadMission(packID, slug)
		if err != nil {
			return nil, fmt.Errorf("load mission %s: %w", missionID, err)
		}
		missions = append(missions, mission)
	}

	return missions, nil
}
