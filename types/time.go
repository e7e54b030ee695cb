package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alphabill-org/chainauthority/internal/util"
)

// TimeDelta is a duration with microsecond resolution. Arithmetic on
// TimeDelta saturates: MaxTimeDelta stands for "never" and subtraction
// floors at zero.
type TimeDelta uint64

const (
	MaxTimeDelta TimeDelta = math.MaxUint64

	maxTimeDeltaText = "max"
	microsSuffix     = "us"
)

func TimeDeltaFromMicros(micros uint64) TimeDelta {
	return TimeDelta(micros)
}

func TimeDeltaFromMillis(millis uint64) TimeDelta {
	return TimeDelta(util.SaturatingMulUint64(millis, 1_000))
}

func TimeDeltaFromSecs(secs uint64) TimeDelta {
	return TimeDelta(util.SaturatingMulUint64(secs, 1_000_000))
}

// TimeDeltaFromDuration converts d to TimeDelta truncating to whole
// microseconds, negative durations are converted to zero.
func TimeDeltaFromDuration(d time.Duration) TimeDelta {
	if d <= 0 {
		return 0
	}
	return TimeDelta(d / time.Microsecond)
}

func (d TimeDelta) AsMicros() uint64 {
	return uint64(d)
}

// fitsDuration reports whether d can be converted to time.Duration without
// loss.
func (d TimeDelta) fitsDuration() bool {
	return uint64(d) <= math.MaxInt64/uint64(time.Microsecond)
}

// AsDuration converts to time.Duration, values which do not fit are
// converted to the maximum duration.
func (d TimeDelta) AsDuration() time.Duration {
	if !d.fitsDuration() {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d) * time.Microsecond
}

func (d TimeDelta) SaturatingAdd(other TimeDelta) TimeDelta {
	return util.SaturatingAdd(d, other)
}

func (d TimeDelta) SaturatingSub(other TimeDelta) TimeDelta {
	return util.SaturatingSub(d, other)
}

func (d TimeDelta) SaturatingMul(n uint64) TimeDelta {
	return TimeDelta(util.SaturatingMulUint64(uint64(d), n))
}

// String returns "max" for MaxTimeDelta and Go duration string otherwise.
// Values too big for time.Duration are written as integer microseconds
// ("9223372036854775808us").
func (d TimeDelta) String() string {
	switch {
	case d == MaxTimeDelta:
		return maxTimeDeltaText
	case !d.fitsDuration():
		return strconv.FormatUint(uint64(d), 10) + microsSuffix
	default:
		return d.AsDuration().String()
	}
}

func (d TimeDelta) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts Go duration strings ("1m30s", "250ms"), integer
// microseconds ("1500us") of any size and "max".
func (d *TimeDelta) UnmarshalText(src []byte) error {
	s := strings.TrimSpace(string(src))
	if strings.EqualFold(s, maxTimeDeltaText) {
		*d = MaxTimeDelta
		return nil
	}
	if digits, ok := strings.CutSuffix(s, microsSuffix); ok {
		if v, err := strconv.ParseUint(digits, 10, 64); err == nil {
			*d = TimeDelta(v)
			return nil
		}
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid time delta %q: %w", s, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid time delta %q: must not be negative", s)
	}
	*d = TimeDeltaFromDuration(v)
	return nil
}

// Timestamp is a point in time, microseconds since the Unix epoch.
type Timestamp uint64

func TimestampFromMicros(micros uint64) Timestamp {
	return Timestamp(micros)
}

// TimestampFromTime converts t to Timestamp, times before the epoch are
// converted to zero.
func TimestampFromTime(t time.Time) Timestamp {
	micros := t.UnixMicro()
	if micros < 0 {
		return 0
	}
	return Timestamp(micros)
}

func (t Timestamp) Micros() uint64 {
	return uint64(t)
}

func (t Timestamp) Time() time.Time {
	if uint64(t) > math.MaxInt64 {
		return time.UnixMicro(math.MaxInt64).UTC()
	}
	return time.UnixMicro(int64(t)).UTC()
}

func (t Timestamp) SaturatingAddDelta(d TimeDelta) Timestamp {
	return Timestamp(util.SaturatingAdd(uint64(t), uint64(d)))
}

func (t Timestamp) SaturatingSubDelta(d TimeDelta) Timestamp {
	return Timestamp(util.SaturatingSub(uint64(t), uint64(d)))
}

// DeltaSince returns the time elapsed since the earlier timestamp, zero
// when earlier is in fact after t.
func (t Timestamp) DeltaSince(earlier Timestamp) TimeDelta {
	return TimeDelta(util.SaturatingSub(uint64(t), uint64(earlier)))
}

func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339Nano)
}
