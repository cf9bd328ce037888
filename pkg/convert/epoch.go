package convert

// Epoch constants. kdb+ counts from 2000-01-01; the host counts days from
// year 0 with 1970-01-01 at day 719529.
const (
	HostEpoch1970  = 719529
	Days1970To2000 = 10957
	NanosPerDay    = 8.64e13
	SecondsPerDay  = 86400
)

// DateToHost rebases a day count from the kdb+ epoch to the host epoch.
func DateToHost(days float64) float64 {
	return days + Days1970To2000 + HostEpoch1970
}

// TimestampToHost converts nanoseconds since the kdb+ epoch to host days.
func TimestampToHost(ns int64) float64 {
	return DateToHost(float64(ns) / NanosPerDay)
}

// TimespanToDays converts a nanosecond duration to fractional days.
func TimespanToDays(ns int64) float64 {
	return float64(ns) / NanosPerDay
}

// MinuteToDays converts minutes since midnight to fractional days.
func MinuteToDays(m int32) float64 {
	return (60.0 * float64(m)) / SecondsPerDay
}

// SecondToDays converts seconds since midnight to fractional days.
func SecondToDays(s int32) float64 {
	return float64(s) / SecondsPerDay
}

// TimeToDays converts milliseconds since midnight to fractional days.
func TimeToDays(ms int32) float64 {
	return (float64(ms) / 1000) / SecondsPerDay
}

// MonthToYearMonth splits a month count since 2000.01 into calendar year and
// month. Division floors, so -1 is 1999.12.
func MonthToYearMonth(c int32) (year, month int) {
	q, r := int(c)/12, int(c)%12
	if r < 0 {
		q--
		r += 12
	}
	return 2000 + q, 1 + r
}

// Sentinel-aware temporal transforms. A null or infinite field becomes NaN or
// ±Inf instead of being rebased.

// timestampValue never passes a sentinel through TimestampToHost, so a null
// timestamp reads NaN rather than a date near 1707.
func timestampValue(ns int64) float64 {
	if c := classifyLong(ns); c != Ordinary {
		return special(c)
	}
	return TimestampToHost(ns)
}

func dateValue(days int32) float64 {
	if c := classifyInt(days); c != Ordinary {
		return special(c)
	}
	return DateToHost(float64(days))
}

func datetimeValue(days float64) float64 {
	if c := classifyFloat(days); c != Ordinary {
		return special(c)
	}
	return DateToHost(days)
}

func timespanValue(ns int64) float64 {
	if c := classifyLong(ns); c != Ordinary {
		return special(c)
	}
	return TimespanToDays(ns)
}

func minuteValue(m int32) float64 {
	if c := classifyInt(m); c != Ordinary {
		return special(c)
	}
	return MinuteToDays(m)
}

func secondValue(s int32) float64 {
	if c := classifyInt(s); c != Ordinary {
		return special(c)
	}
	return SecondToDays(s)
}

func timeValue(ms int32) float64 {
	if c := classifyInt(ms); c != Ordinary {
		return special(c)
	}
	return TimeToDays(ms)
}

func monthValue(c int32) [2]float64 {
	if cls := classifyInt(c); cls != Ordinary {
		v := special(cls)
		return [2]float64{v, v}
	}
	y, m := MonthToYearMonth(c)
	return [2]float64{float64(y), float64(m)}
}
