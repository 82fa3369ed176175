package chart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryKeyAndOrdering(t *testing.T) {
	t.Parallel()

	a := Entry{Date: date(t, "2024-01-06"), Rank: 2}
	b := Entry{Date: date(t, "2024-01-06"), Rank: 10}
	c := Entry{Date: date(t, "2024-01-13"), Rank: 1}

	assert.Equal(t, "2024-01-06_2", a.Key())
	assert.True(t, a.Less(b), "rank compares numerically")
	assert.True(t, b.Less(c), "earlier date first")
	assert.False(t, c.Less(a))
}

func TestKindNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hot_100", Hot100.StoreName())
	assert.Equal(t, "billboard_200", Billboard200.StoreName())
	assert.Equal(t, "song", Hot100.TitleField())
	assert.Equal(t, "album", Billboard200.TitleField())
	assert.Equal(t, []string{"date", "rank", "album", "artist", "last_week", "peak_position", "weeks_on_chart"},
		Billboard200.Columns())

	k, err := ParseKind("hot_100")
	require.NoError(t, err)
	assert.Equal(t, Hot100, k)
	_, err = ParseKind("country")
	assert.Error(t, err)
}

func TestFetchErrorFormatting(t *testing.T) {
	t.Parallel()

	cause := errors.New("Not Found")
	err := &FetchError{Kind: Hot100, Date: date(t, "2024-02-03"), StatusCode: 404, Err: cause}
	assert.Equal(t, "fetch hot-100 2024-02-03: status 404: Not Found", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.Network())

	var fe *FetchError
	wrapped := errors.Join(errors.New("outer"), &FetchError{Kind: Billboard200, Date: date(t, "2024-02-03"), Err: cause})
	require.ErrorAs(t, wrapped, &fe)
	assert.True(t, fe.Network())
}
