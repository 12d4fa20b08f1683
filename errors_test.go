package mappify_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/mappify"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := mappify.NewNotFoundError("User")
		assert.Equal(t, "mappify: User not found", err.Error())
		err = mappify.NewNotFoundErrorWithID("User", 7)
		assert.Equal(t, "mappify: User not found (id=7)", err.Error())
		assert.Equal(t, 7, err.ID())
		assert.Equal(t, "User", err.Label())
	})

	t.Run("Is", func(t *testing.T) {
		err := mappify.NewNotFoundError("Post")
		assert.True(t, errors.Is(err, mappify.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := mappify.NewNotFoundError("Comment")
		assert.True(t, mappify.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, mappify.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, mappify.IsNotFound(mappify.ErrNotFound))

		// Non-matching error
		assert.False(t, mappify.IsNotFound(errors.New("other error")))
		assert.False(t, mappify.IsNotFound(nil))
	})
}

func TestUnknownRelationError(t *testing.T) {
	err := mappify.NewUnknownRelationError("User", "posts")
	assert.Equal(t, `mappify: User has no relation "posts"`, err.Error())
	assert.Equal(t, "posts", err.Relation())
	assert.True(t, mappify.IsUnknownRelation(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, mappify.IsUnknownRelation(errors.New("other error")))
	assert.False(t, mappify.IsUnknownRelation(nil))
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := mappify.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "mappify: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := mappify.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := mappify.NewConstraintError("check failed", nil)
		assert.True(t, mappify.IsConstraintError(err))

		// Wrapped error
		wrapped := mappify.NewMutationError("User", "insert", err)
		assert.True(t, mappify.IsConstraintError(wrapped))

		// Non-matching error
		assert.False(t, mappify.IsConstraintError(errors.New("other error")))
		assert.False(t, mappify.IsConstraintError(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := mappify.NewValidationError("limit", errors.New("must not be negative"))
		assert.Equal(t, "mappify: invalid limit: must not be negative", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("too short")
		err := mappify.NewValidationError("name", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := mappify.NewValidationError("offset", errors.New("offset requires limit"))
		assert.True(t, mappify.IsValidationError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, mappify.IsValidationError(wrapped))

		// Non-matching error
		assert.False(t, mappify.IsValidationError(errors.New("other error")))
		assert.False(t, mappify.IsValidationError(nil))
	})
}

func TestRollbackError(t *testing.T) {
	cause := errors.New("insert failed")
	rollback := errors.New("connection lost")
	err := &mappify.RollbackError{Err: cause, Rollback: rollback}
	assert.Equal(t, "mappify: rollback failed: connection lost (after: insert failed)", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, rollback))
}

func TestQueryAndMutationError(t *testing.T) {
	cause := errors.New("bad connection")

	qerr := mappify.NewQueryError("Product", "select", cause)
	assert.Equal(t, "mappify: querying Product (select): bad connection", qerr.Error())
	assert.True(t, mappify.IsQueryError(fmt.Errorf("wrapper: %w", qerr)))
	assert.True(t, errors.Is(qerr, cause))
	assert.Equal(t, "mappify: querying Product: bad connection", mappify.NewQueryError("Product", "", cause).Error())

	merr := mappify.NewMutationError("Product", "update", cause)
	assert.Equal(t, "mappify: update Product: bad connection", merr.Error())
	assert.True(t, mappify.IsMutationError(merr))
	assert.False(t, mappify.IsMutationError(qerr))
	assert.False(t, mappify.IsQueryError(nil))
}

func TestSentinelErrors(t *testing.T) {
	t.Run("ErrNotFound", func(t *testing.T) {
		assert.Error(t, mappify.ErrNotFound)
		assert.Contains(t, mappify.ErrNotFound.Error(), "not found")
	})

	t.Run("ErrTxStarted", func(t *testing.T) {
		assert.Error(t, mappify.ErrTxStarted)
		assert.Contains(t, mappify.ErrTxStarted.Error(), "transaction")
	})
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = mappify.NewNotFoundError("User")
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := mappify.NewNotFoundError("User")
		for i := 0; i < b.N; i++ {
			_ = mappify.IsNotFound(err)
		}
	})
}
