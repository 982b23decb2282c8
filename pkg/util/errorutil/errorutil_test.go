package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("open ticket: %w", NewNoResponsibleUser())
	assert.ErrorIs(t, err, ErrNoResponsibleUser)
	assert.NotErrorIs(t, err, ErrMissingMessage)
}

func TestDeliveryFailedUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDeliveryFailed(cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, http.StatusBadGateway, ToDomainError(err).HTTPStatus)
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	require.NotNil(t, notFound)
	assert.Equal(t, CodeNotFound, notFound.Code)

	conflict := ToDomainError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}))
	assert.Equal(t, CodeConflict, conflict.Code)
	assert.Equal(t, "users_email_key", conflict.Details["constraint"])

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	transition := ToDomainError(NewInvalidTransition("open", "draft"))
	assert.Equal(t, http.StatusConflict, transition.HTTPStatus)
	assert.Equal(t, "draft", transition.Details["to"])
}
