package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("bad")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrap: %w", ErrDuplicate)))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "Billing not found", UserSafeMessage(BadRequest("Billing not found")))
	assert.Equal(t, "Internal server error.", UserSafeMessage(errors.New("pq: connection refused")))
}

func TestUserIDContextRoundTrip(t *testing.T) {
	_, ok := UserIDFromContext(t.Context())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := UserIDFromContext(ContextWithUserID(t.Context(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = UserIDFromContext(ContextWithUserID(t.Context(), uuid.Nil))
	assert.False(t, ok)
}
