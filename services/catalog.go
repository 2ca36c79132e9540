package services

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redteam-academy/api/model"
)

//go:embed data/challenges.json
var catalogFS embed.FS

// rawLevel mirrors the catalog file layout. The secret fields carry JSON
// tags here so they decode from the embedded file; model.ChallengeLevel
// hides them from API responses.
type rawLevel struct {
	ID                string   `json:"id"`
	Level             int      `json:"level"`
	Title             string   `json:"title"`
	Objective         string   `json:"objective"`
	Scenario          string   `json:"scenario"`
	Difficulty        string   `json:"difficulty"`
	TimeLimit         int      `json:"time_limit"`
	MaxAttempts       int      `json:"max_attempts"`
	Flag              string   `json:"flag"`
	Hints             []string `json:"hints"`
	ContextPrompt     string   `json:"context_prompt"`
	Description       string   `json:"description"`
	LearningObjective string   `json:"learning_objective"`
	OWASPCategory     string   `json:"owasp_category"`
}

type rawCatalog struct {
	Challenges      map[string]rawLevel   `json:"challenges"`
	Vulnerabilities []model.Vulnerability `json:"vulnerabilities"`
}

// Catalog is the static, read-only challenge and vulnerability data.
// Loaded once at startup; safe for concurrent reads.
type Catalog struct {
	levels          map[string]model.ChallengeLevel
	levelKeys       []string
	vulnerabilities []model.Vulnerability
}

// LoadCatalog parses the embedded challenge data
func LoadCatalog() (*Catalog, error) {
	data, err := catalogFS.ReadFile("data/challenges.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge catalog: %w", err)
	}

	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse challenge catalog: %w", err)
	}

	c := &Catalog{
		levels:          make(map[string]model.ChallengeLevel, len(raw.Challenges)),
		vulnerabilities: raw.Vulnerabilities,
	}

	for key, rl := range raw.Challenges {
		if rl.Flag == "" || rl.ContextPrompt == "" {
			return nil, fmt.Errorf("catalog level %q is missing flag or context prompt", key)
		}
		c.levels[key] = model.ChallengeLevel{
			Level:             rl.Level,
			Title:             rl.Title,
			Objective:         rl.Objective,
			Scenario:          rl.Scenario,
			Difficulty:        rl.Difficulty,
			TimeLimit:         rl.TimeLimit,
			MaxAttempts:       rl.MaxAttempts,
			Flag:              rl.Flag,
			Hints:             rl.Hints,
			ContextPrompt:     rl.ContextPrompt,
			MetaID:            rl.ID,
			Description:       rl.Description,
			LearningObjective: rl.LearningObjective,
			OWASPCategory:     rl.OWASPCategory,
		}
		c.levelKeys = append(c.levelKeys, key)
	}

	sort.Slice(c.levelKeys, func(i, j int) bool {
		return c.levels[c.levelKeys[i]].Level < c.levels[c.levelKeys[j]].Level
	})

	return c, nil
}

// Level returns the catalog entry for a level key like "level1"
func (c *Catalog) Level(key string) (model.ChallengeLevel, bool) {
	lvl, ok := c.levels[key]
	return lvl, ok
}

// LevelByNumber returns the catalog entry for a numeric level
func (c *Catalog) LevelByNumber(n int) (model.ChallengeLevel, bool) {
	return c.Level(LevelKey(n))
}

// LevelKey builds the catalog key for a numeric level
func LevelKey(n int) string {
	return fmt.Sprintf("level%d", n)
}

// LevelCount reports how many levels the catalog holds
func (c *Catalog) LevelCount() int {
	return len(c.levelKeys)
}

// SystemPrompt renders a level's context prompt with its flag substituted
// for every ${flag} placeholder.
func (c *Catalog) SystemPrompt(key string) (string, error) {
	lvl, ok := c.levels[key]
	if !ok {
		return "", fmt.Errorf("unknown level: %s", key)
	}
	return strings.ReplaceAll(lvl.ContextPrompt, "${flag}", lvl.Flag), nil
}

// Metadata returns the public view of a level
func (c *Catalog) Metadata(key string) (model.LevelMetadata, bool) {
	lvl, ok := c.levels[key]
	if !ok {
		return model.LevelMetadata{}, false
	}
	return model.LevelMetadata{
		ID:                lvl.MetaID,
		Title:             lvl.Title,
		Difficulty:        lvl.Difficulty,
		Description:       lvl.Description,
		LearningObjective: lvl.LearningObjective,
		OWASPCategory:     lvl.OWASPCategory,
	}, true
}

// Vulnerabilities returns the OWASP LLM Top 10 learning modules
func (c *Catalog) Vulnerabilities() []model.Vulnerability {
	return c.vulnerabilities
}

// Vulnerability looks up a learning module by its numeric ID
func (c *Catalog) Vulnerability(id int) (model.Vulnerability, bool) {
	for _, v := range c.vulnerabilities {
		if v.ID == id {
			return v, true
		}
	}
	return model.Vulnerability{}, false
}
