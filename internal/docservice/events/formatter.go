package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TemplateFormatter formats RequestEvent using a template string. Event
// placeholders use the same double-brace convention as document tags,
// e.g. "[{{timestamp}}] [{{operation}}] [{{status}}]".
type TemplateFormatter struct {
	template     string
	placeholders []placeholder
}

type placeholder struct {
	field string // e.g. "duration_ms"
	start int
	end   int
}

// validFields contains all known placeholder names
var validFields = map[string]bool{
	"timestamp":     true,
	"request_id":    true,
	"operation":     true,
	"status":        true,
	"duration_ms":   true,
	"file_name":     true,
	"file_size":     true,
	"tag_count":     true,
	"template_hash": true,
	"error_type":    true,
	"error_message": true,
	"client_ip":     true,
}

// NewTemplateFormatter parses and validates the template.
// Returns error if any placeholder is unknown or the template is empty.
func NewTemplateFormatter(template string) (*TemplateFormatter, error) {
	if template == "" {
		return nil, fmt.Errorf("template cannot be empty")
	}

	placeholders, err := parsePlaceholders(template)
	if err != nil {
		return nil, err
	}

	return &TemplateFormatter{
		template:     template,
		placeholders: placeholders,
	}, nil
}

// parsePlaceholders extracts and validates all placeholders from the template
func parsePlaceholders(template string) ([]placeholder, error) {
	var placeholders []placeholder
	i := 0

	for i < len(template) {
		start := strings.Index(template[i:], "{{")
		if start == -1 {
			break
		}
		start += i

		end := strings.Index(template[start:], "}}")
		if end == -1 {
			return nil, fmt.Errorf("unclosed placeholder at position %d", start)
		}
		end += start

		field := template[start+2 : end]
		if field == "" {
			return nil, fmt.Errorf("empty placeholder at position %d", start)
		}

		if !validFields[field] {
			return nil, fmt.Errorf("unknown placeholder {{%s}}", field)
		}

		placeholders = append(placeholders, placeholder{
			field: field,
			start: start,
			end:   end + 2,
		})

		i = end + 2
	}

	return placeholders, nil
}

// Template returns the original template string
func (f *TemplateFormatter) Template() string {
	return f.template
}

// Format renders the event using the template
func (f *TemplateFormatter) Format(event *RequestEvent) string {
	if len(f.placeholders) == 0 {
		return f.template
	}

	result := f.template
	// Process placeholders in reverse order to maintain correct positions
	for i := len(f.placeholders) - 1; i >= 0; i-- {
		p := f.placeholders[i]
		value := fieldValue(event, p.field)
		result = result[:p.start] + value + result[p.end:]
	}

	return result
}

// fieldValue retrieves and formats a field value from the event
func fieldValue(event *RequestEvent, field string) string {
	switch field {
	case "timestamp":
		return formatTime(event.CreatedAt)
	case "request_id":
		return formatString(event.RequestID)
	case "operation":
		return formatString(event.Operation)
	case "status":
		return formatString(event.Status)
	case "duration_ms":
		return strconv.FormatInt(event.Duration.Milliseconds(), 10)
	case "file_name":
		return formatString(event.FileName)
	case "file_size":
		return strconv.FormatInt(event.FileSize, 10)
	case "tag_count":
		return strconv.Itoa(event.TagCount)
	case "template_hash":
		return formatString(event.TemplateHash)
	case "error_type":
		return formatString(event.ErrorType)
	case "error_message":
		return formatString(event.ErrorMessage)
	case "client_ip":
		return formatString(event.ClientIP)
	default:
		return "-"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// formatString quotes and escapes a string value, "-" when empty
func formatString(s string) string {
	if s == "" {
		return "-"
	}
	return "\"" + escapeString(s) + "\""
}

// escapeString escapes special characters in a string for log output
func escapeString(s string) string {
	escaped := strings.ReplaceAll(s, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	escaped = strings.ReplaceAll(escaped, "\t", "\\t")
	escaped = strings.ReplaceAll(escaped, "\r", "\\r")
	return escaped
}
