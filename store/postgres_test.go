package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// O acesso real a Postgres é coberto por teste de integração fora daqui;
// estes testes cobrem só as conversões puras.

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	pg := uuidToPg(&id)
	require.True(t, pg.Valid)

	back, err := uuidFromPg(pg)
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestUUIDNilIsInvalid(t *testing.T) {
	pg := uuidToPg(nil)
	assert.False(t, pg.Valid)

	_, err := uuidFromPg(pgtype.UUID{})
	assert.Error(t, err)
}
