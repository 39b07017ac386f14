package posting

import (
	"errors"
	"testing"
)

func TestNormalizeRejectsEmptyIdentityFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		raw   RawRecord
		field string
	}{
		{
			name:  "empty title",
			raw:   RawRecord{SourceURL: "https://jobs.example.com/1", Company: "Acme"},
			field: "title",
		},
		{
			name:  "whitespace title",
			raw:   RawRecord{SourceURL: "https://jobs.example.com/2", Title: "   ", Company: "Acme"},
			field: "title",
		},
		{
			name:  "empty company",
			raw:   RawRecord{SourceURL: "https://jobs.example.com/3", Title: "Go Developer"},
			field: "company",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw)
			if err == nil {
				t.Fatalf("expected a normalization error")
			}

			var normErr *NormalizationError
			if !errors.As(err, &normErr) {
				t.Fatalf("expected *NormalizationError, got %T", err)
			}

			if normErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, normErr.Field)
			}
		})
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint("Senior Go Developer", "Acme Inc.", "Berlin", "https://jobs.example.com/123")
	b := Fingerprint("Senior Go Developer", "Acme Inc.", "Berlin", "https://jobs.example.com/123")

	if a != b {
		t.Fatalf("same input produced different fingerprints: %s vs %s", a, b)
	}

	if len(a) != 64 {
		t.Fatalf("expected a sha256 hex fingerprint, got %d chars", len(a))
	}
}

func TestFingerprintInsensitiveToCasePunctuationAndSuffixes(t *testing.T) {
	t.Parallel()

	base := Fingerprint("Senior Go Developer", "Acme Inc.", "Berlin", "https://jobs.example.com/123")

	cases := []struct {
		name     string
		title    string
		company  string
		location string
		url      string
	}{
		{"case", "SENIOR GO DEVELOPER", "acme inc.", "berlin", "https://jobs.example.com/123"},
		{"punctuation", "Senior Go Developer!", "Acme, Inc", "Berlin", "https://jobs.example.com/123"},
		{"corporate suffix", "Senior Go Developer", "Acme", "Berlin", "https://jobs.example.com/123"},
		{"trailing qualifier", "Senior Go Developer (Remote)", "Acme Inc.", "Berlin", "https://jobs.example.com/123"},
		{"path of the url", "Senior Go Developer", "Acme Inc.", "Berlin", "https://jobs.example.com/456?x=1"},
		{"www prefix", "Senior Go Developer", "Acme Inc.", "Berlin", "https://www.jobs.example.com/123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fingerprint(tc.title, tc.company, tc.location, tc.url)
			if got != base {
				t.Fatalf("expected the fingerprint to be stable under %s changes", tc.name)
			}
		})
	}
}

func TestFingerprintChangesWithIdentity(t *testing.T) {
	t.Parallel()

	base := Fingerprint("Senior Go Developer", "Acme", "Berlin", "https://jobs.example.com/123")

	cases := []struct {
		name     string
		title    string
		company  string
		location string
		url      string
	}{
		{"different title", "Staff Go Developer", "Acme", "Berlin", "https://jobs.example.com/123"},
		{"different company", "Senior Go Developer", "Umbrella", "Berlin", "https://jobs.example.com/123"},
		{"different location", "Senior Go Developer", "Acme", "Munich", "https://jobs.example.com/123"},
		{"different domain", "Senior Go Developer", "Acme", "Berlin", "https://careers.other.com/123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fingerprint(tc.title, tc.company, tc.location, tc.url)
			if got == base {
				t.Fatalf("expected a different fingerprint for %s", tc.name)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Senior Go Developer (Remote)", "senior go developer"},
		{"Senior Go Developer (Remote) (Urgent!)", "senior go developer"},
		{"Acme, Inc.", "acme"},
		{"Data Ltd", "data"},
		{"  spaced   out  ", "spaced out"},
		{"Ltd", "ltd"},
	}

	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractSkillsPrefersRawList(t *testing.T) {
	t.Parallel()

	skills := ExtractSkills("Go, PostgreSQL; Docker | Kubernetes", "we also mention python here")

	want := []string{"docker", "go", "kubernetes", "postgresql"}
	if len(skills) != len(want) {
		t.Fatalf("expected %d skills, got %v", len(want), skills)
	}
	for i, s := range want {
		if skills[i] != s {
			t.Fatalf("expected sorted skills %v, got %v", want, skills)
		}
	}
}

func TestExtractSkillsScansDescription(t *testing.T) {
	t.Parallel()

	skills := ExtractSkills("", "You will build Go services on Kubernetes. Going forward we use PostgreSQL.")

	set := make(map[string]bool)
	for _, s := range skills {
		set[s] = true
	}

	for _, want := range []string{"go", "kubernetes", "postgresql"} {
		if !set[want] {
			t.Fatalf("expected %q in %v", want, skills)
		}
	}

	// "Going" must not match "go" as a substring.
	if len(skills) != 3 {
		t.Fatalf("expected exactly 3 skills, got %v", skills)
	}
}

func TestHasSalaryRange(t *testing.T) {
	t.Parallel()

	with := &Posting{SalaryFrom: 50000}
	without := &Posting{}

	if !with.HasSalaryRange() {
		t.Fatalf("expected a declared salary range")
	}
	if without.HasSalaryRange() {
		t.Fatalf("expected no salary range")
	}
}
