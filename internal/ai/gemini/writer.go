package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/applyflow/applyflow/internal/logger"
	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
)

//go:embed cover_letter_prompt.md
var coverLetterPromptTemplate string

// Writer generates tailored cover letters with a Gemini model. It is invoked
// only for applications that reached the queue.
type Writer struct {
	generator contentGenerator
	logger    *zap.Logger
}

func NewWriter(generator contentGenerator, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		generator: generator,
		logger:    logger.WithFields(log, logger.ModelFields("gemini", generator.Model())...),
	}
}

func (w *Writer) CoverLetter(ctx context.Context, p *profile.Profile, post *posting.Posting) (string, error) {
	if p == nil {
		return "", fmt.Errorf("profile is required")
	}
	if post == nil {
		return "", fmt.Errorf("posting is required")
	}

	profileJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	postingJSON, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal posting payload: %w", err)
	}

	template := coverLetterPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{PROFILE_JSON}}\n\nPosting:\n{{POSTING_JSON}}\n\nWrite a cover letter."
	}
	prompt := strings.ReplaceAll(template, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{POSTING_JSON}}", string(postingJSON))

	letter, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate cover letter: %w", err)
	}

	w.logger.Debug("cover letter generated",
		zap.String("fingerprint", post.Fingerprint),
		zap.Int("length", len(letter)),
	)

	return letter, nil
}
