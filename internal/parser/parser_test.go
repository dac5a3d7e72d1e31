package parser

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, line string) Line {
	t.Helper()
	var out Line
	if !Parse([]byte(line), &out) {
		t.Fatalf("Parse(%q) = false, want true", line)
	}
	return out
}

func TestParseZuluWithFractionalAndLatency(t *testing.T) {
	out := mustParse(t, "2024-01-15T10:30:02.500Z INFO RequestCompleted latency_ms=42")

	if out.Level != Info {
		t.Fatalf("Level = %v, want Info", out.Level)
	}
	if string(out.MessageKey) != "RequestCompleted" {
		t.Fatalf("MessageKey = %q, want %q", out.MessageKey, "RequestCompleted")
	}
	if !out.HasLatency || out.LatencyMs != 42 {
		t.Fatalf("LatencyMs = %d, HasLatency = %v, want 42/true", out.LatencyMs, out.HasLatency)
	}
	want := time.Date(2024, 1, 15, 10, 30, 2, 500*int(time.Millisecond), time.UTC)
	if !out.Timestamp.Equal(want) {
		t.Fatalf("Timestamp = %v, want %v", out.Timestamp, want)
	}
	if out.Timestamp.Location() != time.UTC {
		t.Fatalf("Timestamp location = %v, want UTC", out.Timestamp.Location())
	}
}

func TestParseOffsetNormalizedToUTCNoLatency(t *testing.T) {
	out := mustParse(t, "2024-01-15T10:30:02-06:00 WARN JobTick")

	if out.Level != Warn {
		t.Fatalf("Level = %v, want Warn", out.Level)
	}
	if string(out.MessageKey) != "JobTick" {
		t.Fatalf("MessageKey = %q, want %q", out.MessageKey, "JobTick")
	}
	if out.HasLatency {
		t.Fatalf("HasLatency = true, want false")
	}
	want := time.Date(2024, 1, 15, 16, 30, 2, 0, time.UTC)
	if !out.Timestamp.Equal(want) {
		t.Fatalf("Timestamp = %v, want %v", out.Timestamp, want)
	}
}

func TestParseUnrecognizedLevelBecomesOther(t *testing.T) {
	out := mustParse(t, "2024-01-15T10:30:02Z TRACE StartedUp")
	if out.Level != Other {
		t.Fatalf("Level = %v, want Other", out.Level)
	}
	if string(out.MessageKey) != "StartedUp" {
		t.Fatalf("MessageKey = %q, want %q", out.MessageKey, "StartedUp")
	}
}

func TestParseLevelCaseInsensitive(t *testing.T) {
	for _, tok := range []string{"info", "Info", "INFO", "iNfO"} {
		out := mustParse(t, "2024-01-15T10:30:02Z "+tok+" Foo")
		if out.Level != Info {
			t.Fatalf("token %q: Level = %v, want Info", tok, out.Level)
		}
	}
}

func TestParseMalformedLatencyIsNotMalformedLine(t *testing.T) {
	out := mustParse(t, "2024-01-15T10:30:02Z ERROR Boom latency_ms=")
	if out.HasLatency {
		t.Fatalf("HasLatency = true, want false for digitless latency_ms=")
	}
	out2 := mustParse(t, "2024-01-15T10:30:02Z ERROR Boom nope")
	if out2.HasLatency {
		t.Fatalf("HasLatency = true, want false when latency_ms missing entirely")
	}
}

func TestParseNoMessageKey(t *testing.T) {
	out := mustParse(t, "2024-01-15T10:30:02Z DEBUG")
	if len(out.MessageKey) != 0 {
		t.Fatalf("MessageKey = %q, want empty", out.MessageKey)
	}
}

func TestParseRejectsMissingTimestamp(t *testing.T) {
	var out Line
	if Parse([]byte("not-a-timestamp INFO Foo"), &out) {
		t.Fatalf("Parse succeeded on malformed timestamp")
	}
}

func TestParseRejectsEmptyLine(t *testing.T) {
	var out Line
	if Parse([]byte(""), &out) {
		t.Fatalf("Parse succeeded on empty line")
	}
}

func TestFractionalTruncationToMilliseconds(t *testing.T) {
	cases := []struct {
		frac string
		ms   int
	}{
		{"1", 100},
		{"12", 120},
		{"123", 123},
		{"1234", 123},
		{"1239", 123},
		{"000", 0},
	}
	for _, c := range cases {
		ts, ok := parseTimestamp([]byte("2024-01-15T10:30:02." + c.frac + "Z"))
		if !ok {
			t.Fatalf("frac %q: parseTimestamp failed", c.frac)
		}
		want := time.Date(2024, 1, 15, 10, 30, 2, c.ms*int(time.Millisecond), time.UTC)
		if !ts.Equal(want) {
			t.Fatalf("frac %q: got %v, want %v", c.frac, ts, want)
		}
	}
}

func TestTimestampRejectsTrailingGarbage(t *testing.T) {
	cases := []string{
		"2024-01-15T10:30:02Zgarbage",
		"2024-01-15T10:30:02.123Zx",
		"2024-01-15T10:30:02+06:00x",
		"2024-01-15 10:30:02Z",
		"2024/01/15T10:30:02Z",
		"2024-01-15T10:30:02",
		"2024-13-01T10:30:02Z",
		"2024-02-30T10:30:02Z",
		"2024-01-15T24:00:00Z",
		"2024-01-15T10:30:02.Z",
	}
	for _, c := range cases {
		if _, ok := parseTimestamp([]byte(c)); ok {
			t.Fatalf("parseTimestamp(%q) = ok, want failure", c)
		}
	}
}

func TestTimestampLeapYear(t *testing.T) {
	if _, ok := parseTimestamp([]byte("2024-02-29T00:00:00Z")); !ok {
		t.Fatalf("2024-02-29 should be valid (leap year)")
	}
	if _, ok := parseTimestamp([]byte("2023-02-29T00:00:00Z")); ok {
		t.Fatalf("2023-02-29 should be invalid (non-leap year)")
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	cases := []string{
		"2024-01-15T10:30:02.500Z",
		"2024-01-15T10:30:02+00:00",
		"1999-12-31T23:59:59.999Z",
	}
	for _, c := range cases {
		ts, ok := parseTimestamp([]byte(c))
		if !ok {
			t.Fatalf("parseTimestamp(%q) failed", c)
		}
		formatted := ts.Format("2006-01-02T15:04:05.000Z")
		reparsed, ok := parseTimestamp([]byte(formatted))
		if !ok {
			t.Fatalf("reparse of %q failed", formatted)
		}
		if !reparsed.Equal(ts) {
			t.Fatalf("round trip mismatch: %v != %v", reparsed, ts)
		}
		if reparsed.Location() != time.UTC {
			t.Fatalf("round trip location = %v, want UTC", reparsed.Location())
		}
	}
}

func TestLatencyFindsFirstOccurrenceAnywhereInLine(t *testing.T) {
	out := mustParse(t, "2024-01-15T10:30:02Z INFO Foo extra=1 latency_ms=7 latency_ms=999")
	if !out.HasLatency || out.LatencyMs != 7 {
		t.Fatalf("LatencyMs = %d, HasLatency = %v, want 7/true", out.LatencyMs, out.HasLatency)
	}
}
