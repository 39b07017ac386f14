package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/applyflow/applyflow/internal/application"
)

// SMTPConfig configures the mail dispatcher.
type SMTPConfig struct {
	Server   string
	Port     int
	Sender   string
	Password string
	// Recipient receives outgoing applications. Postings rarely expose a
	// direct address, so this is typically the user's tracked applications
	// inbox or an apply-forwarding address.
	Recipient string
}

// SMTP delivers applications and reports via smtp.SendMail with plain auth,
// upgrading to STARTTLS when the server offers it.
type SMTP struct {
	cfg    SMTPConfig
	logger *zap.Logger

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig, log *zap.Logger) (*SMTP, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, errors.New("smtp server is required")
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, errors.New("smtp sender is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SMTP{cfg: cfg, logger: log, send: smtp.SendMail}, nil
}

// Send mails the application with the cover letter as body and the resume as
// attachment, classifying failures as transient or permanent.
func (s *SMTP) Send(_ context.Context, app *application.Application, docs Documents) (*Result, error) {
	subject := fmt.Sprintf("Application for %s at %s", app.Posting.Title, app.Posting.Company)

	msg, err := s.buildMessage(s.cfg.Recipient, subject, docs.CoverLetter, docs.ResumePath)
	if err != nil {
		return &Result{Outcome: PermanentFailure, Detail: err.Error()}, nil
	}

	if err := s.deliver(s.cfg.Recipient, msg); err != nil {
		outcome := classify(err)
		s.logger.Warn("dispatch failed",
			zap.String("application_id", app.ID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return &Result{Outcome: outcome, Detail: err.Error()}, nil
	}

	s.logger.Info("application dispatched",
		zap.String("application_id", app.ID),
		zap.String("company", app.Posting.Company),
	)
	return &Result{Outcome: Delivered}, nil
}

// SendReport mails a plain-text run summary.
func (s *SMTP) SendReport(_ context.Context, recipient, subject, body string) error {
	msg, err := s.buildMessage(recipient, subject, body, "")
	if err != nil {
		return err
	}
	return s.deliver(recipient, msg)
}

func (s *SMTP) deliver(recipient string, msg []byte) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return errors.New("recipient is required")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Server)
	return s.send(addr, auth, s.cfg.Sender, []string{recipient}, msg)
}

func (s *SMTP) buildMessage(recipient, subject, body, attachmentPath string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("build message body: %w", err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("build message body: %w", err)
	}

	if attachmentPath != "" {
		data, err := os.ReadFile(attachmentPath)
		if err != nil {
			return nil, fmt.Errorf("read attachment %q: %w", attachmentPath, err)
		}

		attachHeader := textproto.MIMEHeader{}
		attachHeader.Set("Content-Type", "application/octet-stream")
		attachHeader.Set("Content-Transfer-Encoding", "base64")
		attachHeader.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", filepath.Base(attachmentPath)))

		part, err := writer.CreatePart(attachHeader)
		if err != nil {
			return nil, fmt.Errorf("build attachment: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		if _, err := part.Write([]byte(encoded)); err != nil {
			return nil, fmt.Errorf("build attachment: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize message: %w", err)
	}

	return buf.Bytes(), nil
}

// classify maps SMTP and network errors onto the retry semantics: 4xx server
// responses and connection trouble are worth retrying, 5xx rejections are
// not.
func classify(err error) Outcome {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		if protoErr.Code >= 500 {
			return PermanentFailure
		}
		return TransientFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return TransientFailure
	}

	return TransientFailure
}
