package sqlite

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeForDB(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2025, 6, 23, 11, 47, 24, 890799237, loc)

	assert.Equal(t, "2025-06-23T09:47:24Z", FormatTimeForDB(ts))
	assert.Nil(t, FormatTimePtrForDB(nil))
	assert.Equal(t, "2025-06-23T09:47:24Z", FormatTimePtrForDB(&ts))
}

func TestParseTimeFromDB(t *testing.T) {
	parsed, err := ParseTimeFromDB("2025-06-23T09:47:24Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2025, 6, 23, 9, 47, 24, 0, time.UTC)))

	_, err = ParseTimeFromDB("2025-06-23 09:47:24")
	assert.Error(t, err)
}

func TestParseNullTimeFromDB(t *testing.T) {
	got, err := ParseNullTimeFromDB(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseNullTimeFromDB(sql.NullString{String: "", Valid: true})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseNullTimeFromDB(sql.NullString{String: "2030-01-02T00:00:00Z", Valid: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2030, got.Year())

	_, err = ParseNullTimeFromDB(sql.NullString{String: "tomorrow", Valid: true})
	assert.Error(t, err)
}

func TestNullID(t *testing.T) {
	zero := int64(0)
	id := int64(5)
	assert.Nil(t, NullID(nil))
	assert.Nil(t, NullID(&zero))
	assert.Equal(t, int64(5), NullID(&id))

	assert.Nil(t, idPtr(sql.NullInt64{}))
	assert.Equal(t, int64(9), *idPtr(sql.NullInt64{Int64: 9, Valid: true}))
}
