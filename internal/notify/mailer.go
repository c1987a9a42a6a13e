// Package notify creates and delivers partner invitation emails. The
// invitation state is durable in the session row; delivery is out-of-band and
// retried by the job queue.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/config"
	"github.com/pairtalk/backend/internal/models"
	"github.com/pairtalk/backend/pkg/queue"
)

// Mailer logs invitations and delivers them over SMTP via the worker.
type Mailer struct {
	repo   *Repository
	queue  *queue.Queue
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewMailer creates an invitation mailer.
func NewMailer(repo *Repository, q *queue.Queue, cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{repo: repo, queue: q, cfg: cfg, logger: logger}
}

// SendInvite logs an invitation email for the session and enqueues its
// delivery. Implements the session service's InviteSender.
func (m *Mailer) SendInvite(ctx context.Context, session *models.TaskSession, recipient string) error {
	e := &models.InviteEmail{
		SessionID: session.ID,
		Recipient: recipient,
		Subject:   "You have been invited to a paired recording session",
		BodyHTML: fmt.Sprintf(
			"<p>A PairTalk user invited you to record a conversation together.</p>"+
				"<p>Create an account with this email address (%s) to accept the invitation.</p>",
			recipient),
	}
	if err := m.repo.Create(ctx, e); err != nil {
		return fmt.Errorf("log invite: %w", err)
	}
	if err := m.queue.EnqueueInviteEmail(ctx, queue.InviteEmailPayload{InviteEmailID: e.ID}); err != nil {
		return fmt.Errorf("enqueue invite: %w", err)
	}
	return nil
}

// Resend re-enqueues delivery of a logged invitation.
func (m *Mailer) Resend(ctx context.Context, inviteEmailID uuid.UUID) error {
	e, err := m.repo.GetByID(ctx, inviteEmailID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("invite email not found: %s", inviteEmailID)
	}
	return m.queue.EnqueueInviteEmail(ctx, queue.InviteEmailPayload{InviteEmailID: e.ID})
}

// Deliver sends one logged invitation over SMTP and records the outcome.
// Without SMTP configuration the email stays logged but undelivered.
func (m *Mailer) Deliver(ctx context.Context, inviteEmailID uuid.UUID) error {
	e, err := m.repo.GetByID(ctx, inviteEmailID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("invite email not found: %s", inviteEmailID)
	}
	if e.Status == models.InviteEmailSent {
		return nil
	}
	if m.cfg.SMTPHost == "" {
		m.logger.Warn("SMTP not configured, invite not delivered", zap.String("invite_email_id", e.ID.String()))
		return nil
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.cfg.FromName, m.cfg.FromAddress, e.Recipient, e.Subject, e.BodyHTML)
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{e.Recipient}, []byte(msg)); err != nil {
		_ = m.repo.MarkFailed(ctx, e.ID, err.Error())
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := m.repo.MarkSent(ctx, e.ID); err != nil {
		return err
	}
	m.logger.Info("invite delivered", zap.String("invite_email_id", e.ID.String()), zap.String("recipient", e.Recipient))
	return nil
}
