// Package prd defines the requirements document that drives the ralph loop
// and the store that reads and writes it.
package prd

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of a feature.
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusComplete
	StatusBlocked
)

// String returns the kebab-case label used in the document.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in-progress"
	case StatusComplete:
		return "complete"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
// Blocked features do not count toward completion but are never resumed.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusBlocked
}

// ParseStatus converts a kebab-case label to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "in-progress":
		return StatusInProgress, nil
	case "complete":
		return StatusComplete, nil
	case "blocked":
		return StatusBlocked, nil
	default:
		return 0, fmt.Errorf("unknown status: %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Category classifies a feature. The set is closed.
type Category int

const (
	CategoryFunctional Category = iota
	CategoryBugfix
	CategoryRefactor
	CategoryTest
	CategoryDocs
)

// String returns the label used in the document.
func (c Category) String() string {
	switch c {
	case CategoryFunctional:
		return "functional"
	case CategoryBugfix:
		return "bugfix"
	case CategoryRefactor:
		return "refactor"
	case CategoryTest:
		return "test"
	case CategoryDocs:
		return "docs"
	default:
		return "unknown"
	}
}

// ParseCategory converts a label to a Category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "functional":
		return CategoryFunctional, nil
	case "bugfix":
		return CategoryBugfix, nil
	case "refactor":
		return CategoryRefactor, nil
	case "test":
		return CategoryTest, nil
	case "docs":
		return CategoryDocs, nil
	default:
		return 0, fmt.Errorf("unknown category: %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Category) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseCategory(str)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Document is the requirements document (PRD) for a ralph run.
type Document struct {
	Project      Project      `json:"project"`
	Verification Verification `json:"verification"`
	Features     []Feature    `json:"features"`
	Completion   Completion   `json:"completion"`
}

// Project holds project metadata.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Repository  string `json:"repository,omitempty"`
}

// Verification lists the commands the agent must run before marking a
// feature complete.
type Verification struct {
	Commands           []VerifyCommand `json:"commands"`
	RunAfterEachFeature bool           `json:"runAfterEachFeature"`
}

// VerifyCommand is a single named verification command.
type VerifyCommand struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// Feature is one unit of work. Only Status may change during a run.
type Feature struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Status      Status   `json:"status"`
	Notes       string   `json:"notes,omitempty"`
}

// Completion describes when the run is done.
type Completion struct {
	AllFeaturesComplete     bool   `json:"allFeaturesComplete"`
	AllVerificationsPassing bool   `json:"allVerificationsPassing"`
	Marker                  string `json:"marker"`
}

// StatusCounts tallies features by status.
type StatusCounts struct {
	Pending    int
	InProgress int
	Complete   int
	Blocked    int
}

// StatusCounts returns per-status feature tallies.
func (d *Document) StatusCounts() StatusCounts {
	var c StatusCounts
	for _, f := range d.Features {
		switch f.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusComplete:
			c.Complete++
		case StatusBlocked:
			c.Blocked++
		}
	}
	return c
}

// Feature returns the feature with the given id, or nil.
func (d *Document) Feature(id string) *Feature {
	for i := range d.Features {
		if d.Features[i].ID == id {
			return &d.Features[i]
		}
	}
	return nil
}

// AllComplete reports whether every feature is complete. Blocked features
// do not count as complete.
func (d *Document) AllComplete() bool {
	for _, f := range d.Features {
		if f.Status != StatusComplete {
			return false
		}
	}
	return len(d.Features) > 0
}

// Clone returns a deep copy. The store hands out clones so no caller can
// mutate the document another component is reading.
func (d *Document) Clone() *Document {
	out := *d
	out.Verification.Commands = append([]VerifyCommand(nil), d.Verification.Commands...)
	out.Features = make([]Feature, len(d.Features))
	for i, f := range d.Features {
		out.Features[i] = f
		out.Features[i].Steps = append([]string(nil), f.Steps...)
	}
	return &out
}

// Validate checks structural invariants: required fields present, feature
// ids non-empty and unique.
func (d *Document) Validate() error {
	if d.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}
	seen := make(map[string]bool, len(d.Features))
	for i, f := range d.Features {
		if f.ID == "" {
			return fmt.Errorf("features[%d].id is empty", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate feature id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}
