package rtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDurationFromNanosRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 1_000_000_000, -1_000_000_000, 123456789, -123456789}
	for _, n := range cases {
		d := DurationFromNanos(n)
		got, err := d.ToNanos()
		assert.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestDurationFromNanosBoundaries(t *testing.T) {
	d := DurationFromNanos(math.MinInt64)
	assert.Equal(t, int32(math.MinInt32), d.Sec)
	assert.Equal(t, uint32(0), d.Nanosec)

	d = DurationFromNanos(-1)
	assert.Equal(t, int32(-1), d.Sec)
	assert.Equal(t, uint32(999_999_999), d.Nanosec)
}

func TestDurationFromNanosSaturatesOnOverflow(t *testing.T) {
	d := DurationFromNanos(math.MaxInt64)
	assert.Equal(t, int32(math.MaxInt32), d.Sec)
	assert.Equal(t, uint32(math.MaxUint32), d.Nanosec)
}

func TestTimeFromNanosRoundTripNonNegative(t *testing.T) {
	cases := []int64{0, 1, 1_000_000_000, 1_700_000_000_123_456_789}
	for _, n := range cases {
		tm := TimeFromNanos(n)
		assert.Equal(t, n, tm.ToNanos())
	}
}

func TestROSTimeToBuiltinTime(t *testing.T) {
	rt := ROSTime{NanosSinceEpoch: 5_000_000_001}
	bt := FromROSTime(rt)
	assert.Equal(t, int32(5), bt.Sec)
	assert.Equal(t, uint32(1), bt.Nanosec)
	assert.Equal(t, rt, bt.ToROSTime())
}
