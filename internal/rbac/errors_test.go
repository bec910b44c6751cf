package rbac

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/prakerin/prakerin/internal/platform/httpx"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{nil, FailureNone},
		{&AccessDeniedError{}, FailureForbidden},
		{fmt.Errorf("wrap: %w", &DataIntegrityError{Missing: "roles"}), FailureIntegrity},
		{ErrUnauthenticated, FailureUnauthenticated},
		{&ValidationError{Field: "Role", Message: "required"}, FailureValidation},
		{fmt.Errorf("revoke: %w", ErrNotFound), FailureNotFound},
		{&StoreError{Op: "x", Err: errors.New("boom")}, FailureDB},
		{errors.New("anything"), FailureDB},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.err), "%v", tc.err)
	}
	assert.Equal(t, "integrity", FailureIntegrity.String())
}

func TestFailFrom(t *testing.T) {
	res := FailFrom[int](&AccessDeniedError{Principal: uuid.New(), Requirement: ManageRequirement}, "No access.")
	assert.False(t, res.OK)
	assert.Equal(t, CodeForbidden, res.Error.Code)
	assert.Equal(t, "No access.", res.Error.Message)

	res = FailFrom[int](&ValidationError{Field: "Role", Message: "required"}, "")
	assert.Equal(t, CodeValidation, res.Error.Code)
	assert.Equal(t, "Role: required", res.Error.Message)

	assert.Equal(t, CodeNotFound, FailFrom[int](ErrNotFound, "").Error.Code)
	assert.Equal(t, CodeIntegrity, FailFrom[int](&DataIntegrityError{}, "").Error.Code)
	assert.Equal(t, CodeUnauthenticated, FailFrom[int](ErrUnauthenticated, "").Error.Code)
	dbRes := FailFrom[int](errors.New("pq: relation \"role_permissions\" does not exist"), "")
	assert.Equal(t, CodeDB, dbRes.Error.Code)
	assert.Equal(t, DBFailureMessage, dbRes.Error.Message)

	ok := OK(42)
	assert.True(t, ok.OK)
	assert.Nil(t, ok.Error)
}

func TestErrorsMatchHTTPSentinels(t *testing.T) {
	assert.ErrorIs(t, &AccessDeniedError{}, httpx.ErrForbidden)
	assert.ErrorIs(t, &ValidationError{Message: "bad"}, httpx.ErrValidation)
	assert.Equal(t, "rbac: forbidden", (&AccessDeniedError{}).Error())

	id := uuid.New()
	err := &AccessDeniedError{Principal: id, Section: "ks"}
	assert.Contains(t, err.Error(), "section ks")
	assert.Contains(t, err.Error(), id.String())
}
