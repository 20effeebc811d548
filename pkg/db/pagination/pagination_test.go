package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimReturnsCursorOfLastKeptElement(t *testing.T) {
	items := []string{"a", "b", "c"}
	kept, info, err := Trim(items, 2, func(v string) Cursor { return Cursor{ID: v} })
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, kept)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "b", cursor.ID)
}

func TestTrimWithoutMore(t *testing.T) {
	kept, info, err := Trim([]string{"a"}, 2, func(v string) Cursor { return Cursor{ID: v} })
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, kept)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
}
