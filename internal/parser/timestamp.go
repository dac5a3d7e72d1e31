package parser

import "time"

// daysInMonth returns the number of days in month m of year y (1-indexed
// month), honoring the Gregorian leap-year rule.
func daysInMonth(y, m int) int {
	switch m {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(y) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func digit(b byte) (int, bool) {
	if b < '0' || b > '9' {
		return 0, false
	}
	return int(b - '0'), true
}

func digits2(b []byte) (int, bool) {
	if len(b) != 2 {
		return 0, false
	}
	d0, ok0 := digit(b[0])
	d1, ok1 := digit(b[1])
	if !ok0 || !ok1 {
		return 0, false
	}
	return d0*10 + d1, true
}

func digits4(b []byte) (int, bool) {
	if len(b) != 4 {
		return 0, false
	}
	v := 0
	for _, c := range b {
		d, ok := digit(c)
		if !ok {
			return 0, false
		}
		v = v*10 + d
	}
	return v, true
}

// parseTimestamp parses a strict ISO-8601 timestamp:
// YYYY-MM-DD T HH:MM:SS[.d+][Z|±HH:MM], with no trailing characters. The
// fractional part, if present, is truncated to milliseconds (3 digits):
// ".1" -> 100ms, ".12" -> 120ms, ".1234" -> 123ms. The result is normalized
// to UTC.
func parseTimestamp(b []byte) (time.Time, bool) {
	// Minimum: "YYYY-MM-DDTHH:MM:SSZ" = 20 bytes.
	if len(b) < 20 {
		return time.Time{}, false
	}
	if b[4] != '-' || b[7] != '-' || b[10] != 'T' || b[13] != ':' || b[16] != ':' {
		return time.Time{}, false
	}

	year, ok := digits4(b[0:4])
	if !ok {
		return time.Time{}, false
	}
	month, ok := digits2(b[5:7])
	if !ok || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, ok := digits2(b[8:10])
	if !ok || day < 1 || day > daysInMonth(year, month) {
		return time.Time{}, false
	}
	hour, ok := digits2(b[11:13])
	if !ok || hour > 23 {
		return time.Time{}, false
	}
	minute, ok := digits2(b[14:16])
	if !ok || minute > 59 {
		return time.Time{}, false
	}
	second, ok := digits2(b[17:19])
	if !ok || second > 59 {
		return time.Time{}, false
	}

	rest := b[19:]
	nanos := 0
	if len(rest) > 0 && rest[0] == '.' {
		rest = rest[1:]
		start := 0
		millis := 0
		count := 0
		for start < len(rest) {
			d, ok := digit(rest[start])
			if !ok {
				break
			}
			if count < 3 {
				millis = millis*10 + d
			}
			count++
			start++
		}
		if count == 0 {
			return time.Time{}, false
		}
		for count < 3 {
			millis *= 10
			count++
		}
		nanos = millis * int(time.Millisecond)
		rest = rest[start:]
	}

	if len(rest) == 0 {
		return time.Time{}, false
	}

	var loc *time.Location
	if rest[0] == 'Z' {
		if len(rest) != 1 {
			return time.Time{}, false
		}
		loc = time.UTC
	} else if rest[0] == '+' || rest[0] == '-' {
		if len(rest) != 6 || rest[3] != ':' {
			return time.Time{}, false
		}
		offHour, ok := digits2(rest[1:3])
		if !ok || offHour > 23 {
			return time.Time{}, false
		}
		offMin, ok := digits2(rest[4:6])
		if !ok || offMin > 59 {
			return time.Time{}, false
		}
		offset := offHour*3600 + offMin*60
		if rest[0] == '-' {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	} else {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc)
	return t.UTC(), true
}
