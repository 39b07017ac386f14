package posting

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// NormalizationError marks a raw record that is unusable for identity. Such
// records must not enter the pipeline.
type NormalizationError struct {
	SourceURL string
	Field     string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %s is empty", e.SourceURL, e.Field)
}

// corporate suffixes dropped from normalized company names, so "Acme Inc." and
// "Acme, Inc" fingerprint identically.
var corporateSuffixes = map[string]bool{
	"inc": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "co": true, "gmbh": true,
	"plc": true, "sa": true, "bv": true,
}

var (
	trailingQualifier = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	nonWord           = regexp.MustCompile(`[^a-z0-9 ]+`)
	multiSpace        = regexp.MustCompile(`\s+`)
)

// Normalize converts a raw scraped record into a canonical Posting with a
// stable identity fingerprint. Display fields keep their original casing; the
// normalized forms are used for fingerprinting only.
func Normalize(raw RawRecord) (*Posting, error) {
	title := strings.TrimSpace(raw.Title)
	company := strings.TrimSpace(raw.Company)

	if title == "" {
		return nil, &NormalizationError{SourceURL: raw.SourceURL, Field: "title"}
	}
	if company == "" {
		return nil, &NormalizationError{SourceURL: raw.SourceURL, Field: "company"}
	}

	p := &Posting{
		SourceURL:   strings.TrimSpace(raw.SourceURL),
		Title:       title,
		Company:     company,
		Location:    strings.TrimSpace(raw.Location),
		Description: strings.TrimSpace(raw.Description),
		SalaryFrom:  raw.SalaryFrom,
		SalaryTo:    raw.SalaryTo,
		PostedAt:    raw.PostedAt,
	}

	p.Fingerprint = Fingerprint(title, company, p.Location, p.SourceURL)
	p.ExtractedSkills = ExtractSkills(raw.RawSkillsText, raw.Description)

	return p, nil
}

// Fingerprint derives the identity key from normalized title, company,
// location and the source domain. It is a pure function: case, punctuation,
// corporate suffixes and trailing parenthesized qualifiers do not change the
// result.
func Fingerprint(title, company, location, sourceURL string) string {
	key := strings.Join([]string{
		NormalizeText(title),
		NormalizeText(company),
		NormalizeText(location),
		sourceDomain(sourceURL),
	}, "|")

	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

// NormalizeText lower-cases, strips trailing parenthesized qualifiers and
// punctuation, collapses whitespace and drops trailing corporate suffixes.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	for {
		stripped := trailingQualifier.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = nonWord.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")

	words := strings.Split(s, " ")
	for len(words) > 1 && corporateSuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}

	return strings.Join(words, " ")
}

func sourceDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// known technologies scanned out of descriptions when the scraper supplied no
// explicit skill list.
var techVocabulary = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "rust",
	"c++", "c#", "ruby", "php", "kotlin", "swift", "scala", "sql", "nosql",
	"postgresql", "postgres", "mysql", "sqlite", "mongodb", "redis", "kafka",
	"rabbitmq", "docker", "kubernetes", "terraform", "aws", "gcp", "azure",
	"linux", "react", "vue", "angular", "node.js", "django", "flask", "spring",
	"grpc", "graphql", "rest", "ci/cd", "git", "machine learning", "ml",
}

// ExtractSkills parses the scraper's skill list when present and otherwise
// falls back to scanning the description for known technologies. The result
// is lowercased, deduplicated and sorted.
func ExtractSkills(rawSkillsText, description string) []string {
	set := make(map[string]bool)

	for _, part := range strings.FieldsFunc(rawSkillsText, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '\n' || r == '|'
	}) {
		skill := strings.ToLower(strings.TrimSpace(part))
		if skill != "" {
			set[skill] = true
		}
	}

	if len(set) == 0 && description != "" {
		text := " " + strings.ToLower(description) + " "
		for _, tech := range techVocabulary {
			if containsWord(text, tech) {
				set[tech] = true
			}
		}
	}

	return sortedSkills(set)
}

// containsWord reports whether text contains tech delimited by non-word
// characters. A plain substring check would turn "going" into "go".
func containsWord(text, tech string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], tech)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(tech)
		if !isWordChar(rune(text[start-1])) && (end >= len(text) || !isWordChar(rune(text[end]))) {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
}
