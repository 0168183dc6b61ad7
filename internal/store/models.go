package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Preference is one append-only row of the adaptive weighting log. The current
// value for an (agent, context) pair is the most recently created row; rows are
// never updated or deleted.
type Preference struct {
	ID        uint   `gorm:"primaryKey"`
	AgentType string `gorm:"size:64;index:idx_preferences_key"`
	Context   string `gorm:"size:128;index:idx_preferences_key"`
	Value     float64
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// Analysis persists a full analysis result payload for a URL.
type Analysis struct {
	ID            uint   `gorm:"primaryKey"`
	URL           string `gorm:"size:2048;index"`
	URLNormalized string `gorm:"size:2048;index"`
	ResultJSON    string `gorm:"type:text"`
	ProcessingMs  int64
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

// SetResult stores the analysis payload as JSON.
func (a *Analysis) SetResult(result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	a.ResultJSON = string(payload)
	return nil
}

// Result decodes the stored payload into out.
func (a *Analysis) Result(out any) error {
	if strings.TrimSpace(a.ResultJSON) == "" {
		return nil
	}
	return json.Unmarshal([]byte(a.ResultJSON), out)
}

// ExpertFeedback records raw expert feedback submissions for a URL.
type ExpertFeedback struct {
	ID           uint      `gorm:"primaryKey"`
	URL          string    `gorm:"size:2048;index"`
	FeedbackJSON string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
