// Package rtime implements the ROS 2 time model: ROSTime (wall-clock,
// nanoseconds since the UNIX epoch), ROSDuration, SteadyTime (a monotonic
// instant, used only for hardware-facing code), and the wire-compatible
// builtin_interfaces Time/Duration types with their exact saturating
// conversions.
package rtime

import (
	"errors"
	"time"
)

// TimestampConversionErrorKind enumerates why a conversion between a
// builtin_interfaces wire timestamp and an internal time type failed.
type TimestampConversionErrorKind int

const (
	Overflow TimestampConversionErrorKind = iota
	Invalid
	Infinite
)

// TimestampConversionError reports a failed Time/ROSTime conversion.
type TimestampConversionError struct {
	Kind TimestampConversionErrorKind
}

func (e *TimestampConversionError) Error() string {
	switch e.Kind {
	case Overflow:
		return "rtime: timestamp conversion overflow"
	case Invalid:
		return "rtime: invalid timestamp"
	case Infinite:
		return "rtime: infinite timestamp"
	default:
		return "rtime: timestamp conversion error"
	}
}

// ROSTime is nanoseconds since the UNIX epoch.
type ROSTime struct {
	NanosSinceEpoch int64
}

// ROSTimeZero is the UNIX epoch.
var ROSTimeZero = ROSTime{}

// Now returns the current wall-clock time as a ROSTime.
func Now() ROSTime {
	return ROSTime{NanosSinceEpoch: time.Now().UnixNano()}
}

// FromTimeGo converts a standard library time.Time into a ROSTime.
func FromTimeGo(t time.Time) ROSTime {
	return ROSTime{NanosSinceEpoch: t.UnixNano()}
}

// Time converts a ROSTime back into a standard library time.Time (UTC).
func (t ROSTime) Time() time.Time {
	return time.Unix(0, t.NanosSinceEpoch).UTC()
}

func (t ROSTime) Add(d ROSDuration) ROSTime {
	return ROSTime{NanosSinceEpoch: t.NanosSinceEpoch + d.Diff}
}

func (t ROSTime) Sub(other ROSTime) ROSDuration {
	return ROSDuration{Diff: t.NanosSinceEpoch - other.NanosSinceEpoch}
}

// ROSDuration is a signed nanosecond duration.
type ROSDuration struct {
	Diff int64
}

func (d ROSDuration) Nanos() int64 { return d.Diff }

// SteadyTime is a monotonic instant with an arbitrary origin, guaranteed
// non-decreasing. It has no direct conversion to/from nanoseconds or
// calendar time; use ROSTime for anything that must be comparable across
// processes or simulated.
type SteadyTime struct {
	instant time.Time // monotonic-reading time.Time, per Go's runtime contract
}

// SteadyNow returns the current steady-clock reading.
func SteadyNow() SteadyTime {
	return SteadyTime{instant: time.Now()}
}

// Sub returns the signed duration between two SteadyTime readings.
func (t SteadyTime) Sub(other SteadyTime) time.Duration {
	return t.instant.Sub(other.instant)
}

func (t SteadyTime) Add(d time.Duration) SteadyTime {
	return SteadyTime{instant: t.instant.Add(d)}
}

const billion = 1_000_000_000

// Time is the wire-compatible builtin_interfaces/Time: seconds and
// nanoseconds since the epoch, each fitting a 32-bit field. Conversions to
// nanoseconds are exact and non-saturating: callers are expected to keep
// sec/nanosec within range themselves (the reference implementation panics
// on out-of-range inputs here; library-internal invariants make that
// unreachable for values produced by this package).
type Time struct {
	Sec     int32
	Nanosec uint32
}

// TimeZero is the zero builtin_interfaces Time.
var TimeZero = Time{}

// TimeFromNanos converts a signed nanosecond count into sec/nanosec. Seconds
// outside the i32 range saturate, like DurationFromNanos, to
// {MaxInt32,MaxUint32} on overflow or {MinInt32,0} on underflow rather than
// wrapping.
func TimeFromNanos(nanos int64) Time {
	sec := nanos / billion
	nsec := nanos % billion
	if nsec < 0 {
		nsec += billion
		sec--
	}
	if sec > 1<<31-1 {
		return Time{Sec: 1<<31 - 1, Nanosec: 1<<32 - 1}
	}
	if sec < -1<<31 {
		return Time{Sec: -1 << 31, Nanosec: 0}
	}
	return Time{Sec: int32(sec), Nanosec: uint32(nsec)}
}

// ToNanos converts back to a signed nanosecond count.
func (t Time) ToNanos() int64 {
	return int64(t.Sec)*billion + int64(t.Nanosec)
}

// FromROSTime converts a ROSTime to the wire Time type.
func FromROSTime(t ROSTime) Time {
	return TimeFromNanos(t.NanosSinceEpoch)
}

// ToROSTime converts the wire Time type back to a ROSTime.
func (t Time) ToROSTime() ROSTime {
	return ROSTime{NanosSinceEpoch: t.ToNanos()}
}

// Duration is the wire-compatible builtin_interfaces/Duration. Unlike
// Time, negative durations are represented with sec negative and nanosec
// always in [0, 1e9), matching rclcpp's normalization: sec = floor(nanos /
// 1e9), nanosec = nanos - sec*1e9. Conversion from nanoseconds saturates on
// overflow instead of panicking.
type Duration struct {
	Sec     int32
	Nanosec uint32
}

// DurationZero is the zero builtin_interfaces Duration.
var DurationZero = Duration{}

var errDurationRange = errors.New("rtime: duration out of i32/u32 range")

// DurationFromNanos implements the exact saturating algorithm used by the
// reference rclcpp Duration conversion: the quotient/remainder computation
// branches on sign so that nanosec is always the canonical non-negative
// remainder, and the result saturates to {MaxInt32,MaxUint32} on overflow
// or {MinInt32,0} on underflow rather than wrapping or panicking.
func DurationFromNanos(nanos int64) Duration {
	const maxSec = int64(1<<31 - 1)
	const minSec = int64(-1 << 31)

	var sec int64
	var nsec int64
	if nanos >= 0 {
		sec = nanos / billion
		nsec = nanos % billion
	} else {
		// Work in uint64 to avoid overflowing on -nanos when nanos ==
		// math.MinInt64, then round the quotient toward negative
		// infinity so nsec lands in [0, 1e9).
		absNanos := uint64(-(nanos+1)) + 1
		q := absNanos / billion
		r := absNanos % billion
		if r == 0 {
			sec = -int64(q)
			nsec = 0
		} else {
			sec = -int64(q + 1)
			nsec = billion - int64(r)
		}
	}

	if sec > maxSec {
		return Duration{Sec: 1<<31 - 1, Nanosec: 1<<32 - 1}
	}
	if sec < minSec {
		return Duration{Sec: -1 << 31, Nanosec: 0}
	}
	return Duration{Sec: int32(sec), Nanosec: uint32(nsec)}
}

// ToNanos converts back to a signed nanosecond count. Returns
// errDurationRange when Nanosec is outside [0, 1e9): a Duration built by
// hand that way, or the {MaxInt32,MaxUint32} value DurationFromNanos
// saturates to on overflow. Every other DurationFromNanos result converts
// without error.
func (d Duration) ToNanos() (int64, error) {
	if d.Nanosec >= billion {
		return 0, errDurationRange
	}
	return int64(d.Sec)*billion + int64(d.Nanosec), nil
}

// MustToNanos is ToNanos but panics on its error case, which includes the
// saturated overflow value of DurationFromNanos.
func (d Duration) MustToNanos() int64 {
	n, err := d.ToNanos()
	if err != nil {
		panic(err)
	}
	return n
}
