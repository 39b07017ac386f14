package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Criteria holds the candidate's search preferences consulted by the scorer.
type Criteria struct {
	Titles    []string `json:"titles,omitempty"`
	SalaryMin int      `json:"salary_min,omitempty"`
	SalaryMax int      `json:"salary_max,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Remote    bool     `json:"remote,omitempty"`
}

// Profile is the candidate record. It is immutable during a pipeline run;
// updates happen only between runs via an explicit file edit.
type Profile struct {
	ID      string   `json:"id"`
	Email   string   `json:"email,omitempty"`
	Name    string   `json:"name,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Skills  []string `json:"skills,omitempty"`
	Links   []string `json:"links,omitempty"`

	Criteria Criteria `json:"criteria"`
}

// FromFile loads a profile from a JSON file.
func FromFile(path string) (*Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile file: %w", err)
	}
	defer file.Close()

	var p Profile
	if err := json.NewDecoder(file).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile file %q: %w", path, err)
	}

	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("profile file %q: id is required", path)
	}

	return &p, nil
}

// SkillSet returns the profile skills as a lowercased lookup set.
func (p *Profile) SkillSet() map[string]bool {
	set := make(map[string]bool, len(p.Skills))
	for _, s := range p.Skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	return set
}

// Text renders the profile as a single blob for text-similarity use.
func (p *Profile) Text() string {
	parts := make([]string, 0, 3)
	if p.Summary != "" {
		parts = append(parts, p.Summary)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, strings.Join(p.Skills, " "))
	}
	if len(p.Criteria.Titles) > 0 {
		parts = append(parts, strings.Join(p.Criteria.Titles, " "))
	}
	return strings.Join(parts, "\n")
}
