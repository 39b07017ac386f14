package posting

import (
	"sort"
	"strings"
	"time"
)

// RawRecord is a single scraped listing as produced by the scraping
// collaborator. Order within a batch is not significant and the batch may be
// empty.
type RawRecord struct {
	SourceURL     string     `json:"source_url,omitempty"`
	Title         string     `json:"title,omitempty"`
	Company       string     `json:"company,omitempty"`
	Location      string     `json:"location,omitempty"`
	Description   string     `json:"description,omitempty"`
	RawSkillsText string     `json:"raw_skills_text,omitempty"`
	SalaryFrom    int        `json:"salary_from,omitempty"`
	SalaryTo      int        `json:"salary_to,omitempty"`
	PostedAt      *time.Time `json:"posted_at,omitempty"`
}

// Posting is a canonical job listing. It is never mutated after creation; a
// re-scrape produces a new Posting compared against history, not an in-place
// update.
type Posting struct {
	SourceURL   string     `json:"source_url"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	SalaryFrom  int        `json:"salary_from,omitempty"`
	SalaryTo    int        `json:"salary_to,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`

	// Fingerprint is the identity key derived from the normalized
	// title/company/location/source domain. Two postings with the same
	// fingerprint are the same job regardless of scrape timestamp.
	Fingerprint string `json:"fingerprint"`

	// ExtractedSkills is a lowercased skill set parsed out of the raw record.
	ExtractedSkills []string `json:"extracted_skills,omitempty"`
}

// HasSalaryRange reports whether the posting declares a usable salary range.
func (p *Posting) HasSalaryRange() bool {
	return p.SalaryFrom > 0 || p.SalaryTo > 0
}

// SkillSet returns the extracted skills as a lookup set.
func (p *Posting) SkillSet() map[string]bool {
	set := make(map[string]bool, len(p.ExtractedSkills))
	for _, s := range p.ExtractedSkills {
		set[s] = true
	}
	return set
}

// Text renders the fields used for fuzzy duplicate comparison.
func (p *Posting) Text() string {
	return strings.TrimSpace(p.Title + "\n" + p.Description)
}

// sortedSkills returns a deterministic copy of the provided skill set.
func sortedSkills(set map[string]bool) []string {
	skills := make([]string, 0, len(set))
	for s := range set {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	return skills
}
