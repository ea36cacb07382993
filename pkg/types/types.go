package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Operation name constants used in metrics labels and request events
const (
	OperationExtract  = "extract"
	OperationGenerate = "generate"
)

// Outcome status constants shared by metrics labels and request events.
// StatusSuccess marks a completed operation; the remaining values double
// as structured error types.
const (
	StatusSuccess = "success"

	ErrorTypeBadInput    = "bad_input"
	ErrorTypeNoTags      = "no_tags"
	ErrorTypeRenderError = "render_error"
	ErrorTypeInternal    = "internal_error"
)

// ExtractionResult is the payload returned by a successful placeholder
// extraction. Tags are unique and sorted ascending by code point.
type ExtractionResult struct {
	Tags         []string `json:"tags"`
	Count        int      `json:"count"`
	TemplateHash string   `json:"template_hash"`
}

// ValueMapping maps placeholder tag names to their replacement strings.
// Unknown keys are ignored during rendering; missing keys substitute the
// empty string.
type ValueMapping map[string]string

// Duration wraps time.Duration with extended YAML parsing support for days and weeks
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for extended duration formats
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	// Try standard parsing first (handles: ns, us, ms, s, m, h)
	dur, err := time.ParseDuration(s)
	if err == nil {
		*d = Duration(dur)
		return nil
	}

	// Parse extended formats: d (days), w (weeks)
	dur, err = parseExtendedDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Duration.
// Accepts both numbers (nanoseconds, backward-compatible) and strings ("15s", "24h", "30d", "2w").
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ns int64
	if err := json.Unmarshal(data, &ns); err == nil {
		*d = Duration(ns)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or number, got %s", string(data))
	}

	dur, err := time.ParseDuration(s)
	if err == nil {
		*d = Duration(dur)
		return nil
	}

	dur, err = parseExtendedDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ToDuration converts types.Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer for Duration
func (d Duration) String() string {
	return time.Duration(d).String()
}

// parseExtendedDuration parses duration strings with extended suffixes: d (days), w (weeks)
// Examples: "30d", "2w", "1.5d"
func parseExtendedDuration(s string) (time.Duration, error) {
	// Regex: optional sign, number (int or float), suffix (d or w)
	re := regexp.MustCompile(`^(-?)(\d+(?:\.\d+)?)(d|w)$`)
	matches := re.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid format, expected format like '30d' or '2w'")
	}

	sign := matches[1]
	valueStr := matches[2]
	suffix := matches[3]

	// Parse the numeric value
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	// Apply sign
	if sign == "-" {
		value = -value
	}

	// Convert to time.Duration based on suffix
	var duration time.Duration
	switch suffix {
	case "d":
		duration = time.Duration(value * float64(24*time.Hour))
	case "w":
		duration = time.Duration(value * float64(7*24*time.Hour))
	default:
		return 0, fmt.Errorf("unsupported suffix %q", suffix)
	}

	return duration, nil
}

// ByteSize wraps an int64 byte count with human-readable YAML/JSON parsing.
// Accepts plain integers (bytes) or strings with a unit suffix: "512B",
// "64KB", "10MB", "1GB". Units are binary multiples (KB = 1024 bytes).
type ByteSize int64

// Byte size unit multipliers
const (
	KB ByteSize = 1 << (10 * (iota + 1))
	MB
	GB
)

// UnmarshalYAML implements yaml.Unmarshaler for ByteSize.
func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n int64
	if err := unmarshal(&n); err == nil {
		if n < 0 {
			return fmt.Errorf("byte size must not be negative, got %d", n)
		}
		*b = ByteSize(n)
		return nil
	}

	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	size, err := parseByteSize(s)
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	*b = size
	return nil
}

// MarshalYAML implements yaml.Marshaler for ByteSize.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler for ByteSize.
// Accepts both numbers (bytes) and strings ("10MB").
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("byte size must not be negative, got %d", n)
		}
		*b = ByteSize(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("byte size must be a string or number, got %s", string(data))
	}

	size, err := parseByteSize(s)
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	*b = size
	return nil
}

// MarshalJSON implements json.Marshaler for ByteSize.
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// Int64 returns the size as a plain byte count.
func (b ByteSize) Int64() int64 {
	return int64(b)
}

// Int returns the size as an int byte count.
func (b ByteSize) Int() int {
	return int(b)
}

// String renders the size with the largest unit that divides it evenly.
func (b ByteSize) String() string {
	switch {
	case b >= GB && b%GB == 0:
		return fmt.Sprintf("%dGB", b/GB)
	case b >= MB && b%MB == 0:
		return fmt.Sprintf("%dMB", b/MB)
	case b >= KB && b%KB == 0:
		return fmt.Sprintf("%dKB", b/KB)
	default:
		return fmt.Sprintf("%dB", int64(b))
	}
}

// parseByteSize parses strings like "512B", "64KB", "10MB", "1.5GB" or a
// bare number meaning bytes. Unit matching is case-insensitive.
func parseByteSize(s string) (ByteSize, error) {
	re := regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)
	matches := re.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return 0, fmt.Errorf("invalid format, expected format like '10MB' or '512KB'")
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	var unit ByteSize
	switch strings.ToUpper(matches[2]) {
	case "", "B":
		unit = 1
	case "KB":
		unit = KB
	case "MB":
		unit = MB
	case "GB":
		unit = GB
	default:
		return 0, fmt.Errorf("unsupported unit %q", matches[2])
	}

	return ByteSize(value * float64(unit)), nil
}
