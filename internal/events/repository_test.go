package events

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tsdip/backend/internal/apperr"
)

func TestUniqueViolationMapsToDuplicateField(t *testing.T) {
	err := dupEventName(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "uq_events_name"})
	if apperr.KindOf(err) != apperr.KindDuplicateField {
		t.Fatalf("expected duplicate-field error, got %v", err)
	}
	if apperr.CodeOf(err) != "EVENT_NAME_USED" {
		t.Errorf("code = %s, want EVENT_NAME_USED", apperr.CodeOf(err))
	}
}

func TestOtherErrorsPassThrough(t *testing.T) {
	in := errors.New("connection reset")
	if got := dupEventName(in); got != in {
		t.Errorf("dupEventName(%v) = %v, want the error unchanged", in, got)
	}
	fk := &pgconn.PgError{Code: "23503"}
	if got := dupEventName(fk); got != error(fk) {
		t.Errorf("foreign key violation must not map to a conflict, got %v", got)
	}
}
