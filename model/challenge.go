package model

// ChallengeLevel is one scripted training scenario from the static catalog.
// Flag and ContextPrompt are server-only: they are never serialized to
// clients (no JSON tags on purpose for the secret fields).
type ChallengeLevel struct {
	Level         int      `json:"level"`
	Title         string   `json:"title"`
	Objective     string   `json:"objective"`
	Scenario      string   `json:"scenario"`
	Difficulty    string   `json:"difficulty"` // beginner, intermediate, advanced
	TimeLimit     int      `json:"time_limit"` // Seconds
	MaxAttempts   int      `json:"max_attempts"`
	Flag          string   `json:"-"`
	Hints         []string `json:"-"`
	ContextPrompt string   `json:"-"` // Template containing a ${flag} placeholder

	// Metadata surfaced by the /metadata endpoint
	MetaID            string `json:"id"`
	Description       string `json:"description"`
	LearningObjective string `json:"learning_objective"`
	OWASPCategory     string `json:"owasp_category"`
}

// LevelMetadata is the public view of a challenge level returned by /metadata
type LevelMetadata struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Difficulty        string `json:"difficulty"`
	Description       string `json:"description"`
	LearningObjective string `json:"learning_objective"`
	OWASPCategory     string `json:"owasp_category"`
}

// Vulnerability is a learning-module entry from the OWASP LLM Top 10 track
type Vulnerability struct {
	ID                int    `json:"id"`
	Title             string `json:"title"`
	ShortTitle        string `json:"short_title"`
	Description       string `json:"description"`
	Severity          string `json:"severity"` // high, medium, low
	TimeEstimate      string `json:"time_estimate"`
	Category          string `json:"category"`
	LearningObjective string `json:"learning_objective"`
}
