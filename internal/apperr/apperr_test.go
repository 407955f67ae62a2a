package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{DuplicateField("ORG_NAME_USED", "taken"), KindDuplicateField},
		{NotFound("ORG_NOT_FOUND", "missing"), KindNotFound},
		{PermissionDenied("PERMISSION_DENIED", "no"), KindPermissionDenied},
		{NotApproved("EVENT_NOT_APPROVED", "pending"), KindNotApproved},
		{Validation("PARAM_SCHEMA_WARN", "bad"), KindValidation},
		{Unexpected(errors.New("boom")), KindUnexpected},
		{errors.New("plain"), KindUnexpected},
		{nil, KindUnexpected},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestWrappedErrorSurvivesKindOf(t *testing.T) {
	inner := NotFound("REQUEST_NOT_FOUND", "no pending request")
	wrapped := fmt.Errorf("approve org: %w", inner)
	if KindOf(wrapped) != KindNotFound {
		t.Error("kind lost through wrapping")
	}
	if CodeOf(wrapped) != "REQUEST_NOT_FOUND" {
		t.Errorf("CodeOf = %q", CodeOf(wrapped))
	}
	if MessageOf(wrapped) != "no pending request" {
		t.Errorf("MessageOf = %q", MessageOf(wrapped))
	}
}

func TestUnexpectedUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unexpected(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable via errors.Is")
	}
}
