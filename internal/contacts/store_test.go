package contacts

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

func TestPgStoreLookup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	name := "Анна"
	mock.ExpectQuery("SELECT user_id, phone, display_name").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "phone", "display_name"}).AddRow("u-1", "89991234567", &name))

	c, err := NewPgStore(mock).Lookup(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, Contact{UserID: "u-1", Phone: "89991234567", DisplayName: "Анна"}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreLookupMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT user_id, phone, display_name").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPgStore(mock).Lookup(context.Background(), "ghost")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "contact", nf.Kind)
}

func TestPgStoreLookupWithoutPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT user_id, phone, display_name").
		WithArgs("u-2").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "phone", "display_name"}).AddRow("u-2", " ", nil))

	_, err = NewPgStore(mock).Lookup(context.Background(), "u-2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPgStoreLookupQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT user_id, phone, display_name").
		WithArgs("u-3").
		WillReturnError(errors.New("connection reset"))

	_, err = NewPgStore(mock).Lookup(context.Background(), "u-3")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "lookup contact")
}
