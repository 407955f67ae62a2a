package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/queue"
)

// Sender delivers one templated mail.
type Sender interface {
	Send(ctx context.Context, to, templateKey string, params map[string]string) error
}

// EmailLogStore records delivery attempts.
type EmailLogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// JobSource dequeues and retries jobs.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EmailProcessor processes invitation email jobs: log, send via SMTP, stamp
// the outcome.
type EmailProcessor struct {
	logs   EmailLogStore
	mailer Sender
	queue  JobSource
	logger *zap.Logger
}

// NewEmailProcessor creates an invitation email processor.
func NewEmailProcessor(logs EmailLogStore, mailer Sender, q JobSource, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{logs: logs, mailer: mailer, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	el := &models.EmailLog{
		OrgID:          &payload.OrgID,
		RequestID:      &payload.RequestID,
		TemplateKey:    payload.TemplateKey,
		RecipientEmail: payload.RecipientEmail,
		Status:         models.EmailLogStatusPending,
	}
	if err := p.logs.Create(ctx, el); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	params := map[string]string{"org_name": payload.OrgName}
	if err := p.mailer.Send(ctx, payload.RecipientEmail, payload.TemplateKey, params); err != nil {
		if logErr := p.logs.MarkFailed(ctx, el.ID, err.Error()); logErr != nil {
			p.logger.Error("mark email failed", zap.Error(logErr), zap.String("email_log_id", el.ID.String()))
		}
		return fmt.Errorf("send: %w", err)
	}

	if err := p.logs.MarkSent(ctx, el.ID, time.Now().UTC()); err != nil {
		p.logger.Error("mark email sent", zap.Error(err), zap.String("email_log_id", el.ID.String()))
	}
	p.logger.Info("invitation email sent",
		zap.String("recipient", payload.RecipientEmail),
		zap.String("template_key", payload.TemplateKey),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
