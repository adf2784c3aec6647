package nullable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestAfter_NullIsFalse(t *testing.T) {
	a := ts("2018-01-02 00:00:00")
	b := ts("2018-01-01 00:00:00")

	assert.True(t, After(a, b))
	assert.False(t, After(b, a))
	assert.False(t, After(a, a))
	assert.False(t, After(nil, b))
	assert.False(t, After(a, nil))
	assert.False(t, After(nil, nil))
}

func TestAfterOrNil(t *testing.T) {
	a := ts("2018-01-02 00:00:00")
	b := ts("2018-01-01 00:00:00")

	got := AfterOrNil(a, b)
	require.NotNil(t, got)
	assert.True(t, *got)
	assert.Nil(t, AfterOrNil(nil, b))
	assert.Nil(t, AfterOrNil(a, nil))
}

func TestDays(t *testing.T) {
	got := Days(ts("2018-01-01 00:00:00"), ts("2018-01-03 12:00:00"))
	require.NotNil(t, got)
	assert.InDelta(t, 2.5, *got, 1e-9)

	assert.Nil(t, Days(nil, ts("2018-01-01 00:00:00")))
	assert.Nil(t, Days(ts("2018-01-01 00:00:00"), nil))
}

func TestDiv(t *testing.T) {
	got := Div(Ptr(50.0), Ptr(200.0))
	require.NotNil(t, got)
	assert.InDelta(t, 0.25, *got, 1e-9)

	assert.Nil(t, Div(Ptr(1.0), Ptr(0.0)))
	assert.Nil(t, Div(Ptr(1.0), nil))
	assert.Nil(t, Div(nil, Ptr(2.0)))
}

func TestTruncateDay(t *testing.T) {
	got := TruncateDay(ts("2018-05-17 23:59:59"))
	require.NotNil(t, got)
	assert.Equal(t, *ts("2018-05-17 00:00:00"), *got)
	assert.Nil(t, TruncateDay(nil))
}

func TestPositiveAndNonZero(t *testing.T) {
	assert.Nil(t, Positive(Ptr(0.0)))
	assert.Nil(t, Positive(Ptr(-1.0)))
	assert.Nil(t, Positive(nil))
	assert.Equal(t, 3.0, *Positive(Ptr(3.0)))

	assert.Nil(t, NonZero(Ptr(0.0)))
	assert.Equal(t, -1.0, *NonZero(Ptr(-1.0)))
}

func TestMinMaxTime(t *testing.T) {
	a := ts("2018-01-01 00:00:00")
	b := ts("2018-02-01 00:00:00")

	assert.Equal(t, a, MinTime(a, b))
	assert.Equal(t, a, MinTime(b, a))
	assert.Equal(t, b, MinTime(nil, b))
	assert.Equal(t, b, MaxTime(a, b))
	assert.Equal(t, a, MaxTime(a, nil))
	assert.Nil(t, MaxTime(nil, nil))
}

func TestCoalesce(t *testing.T) {
	a := ts("2018-01-01 00:00:00")
	assert.Equal(t, a, Coalesce(nil, a))
	assert.Nil(t, Coalesce[time.Time](nil, nil))
}
