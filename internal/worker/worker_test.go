package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/queue"
)

type fakeLogs struct {
	created []*models.EmailLog
	sent    []uuid.UUID
	failed  map[uuid.UUID]string
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{failed: make(map[uuid.UUID]string)}
}

func (f *fakeLogs) Create(ctx context.Context, el *models.EmailLog) error {
	el.ID = uuid.New()
	f.created = append(f.created, el)
	return nil
}

func (f *fakeLogs) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeLogs) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, templateKey string, params map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func emailJob(t *testing.T, payload queue.EmailPayload) *queue.Job {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeEmail, Payload: body}
}

func TestProcessSendsAndStampsLog(t *testing.T) {
	logs := newFakeLogs()
	mailer := &fakeMailer{}
	p := NewEmailProcessor(logs, mailer, nil, nil)

	payload := queue.EmailPayload{
		TemplateKey:    "INVITE_MEMBER",
		RecipientEmail: "newbie@example.com",
		OrgID:          uuid.New(),
		OrgName:        "Swing City",
		RequestID:      uuid.New(),
	}
	if err := p.Process(context.Background(), emailJob(t, payload)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(logs.created) != 1 {
		t.Fatalf("expected 1 email log, got %d", len(logs.created))
	}
	el := logs.created[0]
	if el.RecipientEmail != payload.RecipientEmail || el.TemplateKey != payload.TemplateKey {
		t.Errorf("unexpected log row: %+v", el)
	}
	if len(logs.sent) != 1 || logs.sent[0] != el.ID {
		t.Error("log not marked sent")
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "newbie@example.com" {
		t.Errorf("mail not delivered: %v", mailer.sent)
	}
}

func TestProcessMarksFailureAndReturnsError(t *testing.T) {
	logs := newFakeLogs()
	mailer := &fakeMailer{err: errors.New("smtp refused")}
	p := NewEmailProcessor(logs, mailer, nil, nil)

	payload := queue.EmailPayload{
		TemplateKey:    "INVITE_MEMBER",
		RecipientEmail: "newbie@example.com",
		OrgID:          uuid.New(),
		RequestID:      uuid.New(),
	}
	err := p.Process(context.Background(), emailJob(t, payload))
	if err == nil {
		t.Fatal("expected error from failed send")
	}
	if len(logs.created) != 1 {
		t.Fatalf("expected 1 email log, got %d", len(logs.created))
	}
	if msg := logs.failed[logs.created[0].ID]; msg != "smtp refused" {
		t.Errorf("failure not recorded, got %q", msg)
	}
	if len(logs.sent) != 0 {
		t.Error("failed delivery must not be marked sent")
	}
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewEmailProcessor(newFakeLogs(), &fakeMailer{}, nil, nil)
	job := &queue.Job{ID: "x", Type: "video"}
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}
