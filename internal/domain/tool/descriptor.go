package tool

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/metricool"
)

// Kind selects the URL shape of a tool.
type Kind string

const (
	// KindProfiles lists the brands of the account; only userId is sent.
	KindProfiles Kind = "profiles"
	// KindRange queries one channel for a date range and a brand.
	KindRange Kind = "range"
)

// DateStyle is the date contract of a range endpoint. Each remote endpoint has
// its own; the two are never unified.
type DateStyle string

const (
	// DateStyleISO takes YYYY-MM-DD and sends from/to with an encoded time suffix.
	DateStyleISO DateStyle = "iso"
	// DateStyleCompact takes YYYYMMDD and sends start/end unchanged.
	DateStyleCompact DateStyle = "compact"
)

// Start-of-day time for every ISO range; the end bound is per endpoint.
const startOfDay = "00:00:00"

// Argument names accepted by range tools.
const (
	ArgInitDate = "init_date"
	ArgEndDate  = "end_date"
	ArgBlogID   = "blog_id"
)

// Descriptor is one immutable catalog entry.
type Descriptor struct {
	Name         string    `yaml:"name"`
	Title        string    `yaml:"title"`
	Description  string    `yaml:"description"`
	Kind         Kind      `yaml:"kind"`
	Path         string    `yaml:"path"`
	Method       string    `yaml:"method"`
	DateStyle    DateStyle `yaml:"date_style"`
	EndOfDay     string    `yaml:"end_of_day"`
	FailureLabel string    `yaml:"failure_label"`
}

// Param is one declared input parameter.
type Param struct {
	Name        string
	Type        string // JSON schema type: "string" or "integer"
	Description string
}

// Params returns the ordered parameter list. Profiles tools take none.
func (d Descriptor) Params() []Param {
	if d.Kind != KindRange {
		return nil
	}
	example := "2025-01-01"
	if d.DateStyle == DateStyleCompact {
		example = "20250101"
	}
	return []Param{
		{Name: ArgInitDate, Type: "string", Description: "Init date of the period to get the data. The format is " + example},
		{Name: ArgEndDate, Type: "string", Description: "End date of the period to get the data. The format is " + example},
		{Name: ArgBlogID, Type: "integer", Description: "Blog id of the Metricool brand account."},
	}
}

// InputSchema renders Params as a JSON schema object.
func (d Descriptor) InputSchema() map[string]any {
	params := d.Params()
	props := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		props[p.Name] = map[string]any{"type": p.Type, "description": p.Description}
		required = append(required, p.Name)
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if d.Kind == KindRange {
		schema["required"] = required
		schema["additionalProperties"] = false
	}
	return schema
}

// BuildURL maps args and creds to the request target. It is pure: identical
// inputs always give byte-identical output. Query order follows the remote
// documentation: dates, blogId, userId.
func (d Descriptor) BuildURL(baseURL string, creds metricool.Credentials, args Args) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString(d.Path)
	b.WriteByte('?')

	if d.Kind == KindRange {
		for _, kv := range d.rangeQuery(args) {
			b.WriteString(kv[0])
			b.WriteByte('=')
			b.WriteString(kv[1])
			b.WriteByte('&')
		}
	}
	b.WriteString("userId=")
	b.WriteString(url.QueryEscape(creds.UserID))
	return b.String()
}

// rangeQuery returns the already-encoded query pairs preceding userId.
func (d Descriptor) rangeQuery(args Args) [][2]string {
	blogID := strconv.FormatInt(args.BlogID, 10)
	if d.DateStyle == DateStyleCompact {
		return [][2]string{
			{"start", url.QueryEscape(args.InitDate)},
			{"end", url.QueryEscape(args.EndDate)},
			{"blogId", blogID},
		}
	}
	return [][2]string{
		{"from", url.QueryEscape(args.InitDate + "T" + startOfDay)},
		{"to", url.QueryEscape(args.EndDate + "T" + d.EndOfDay)},
		{"blogId", blogID},
	}
}

// RequestBody is the JSON payload for POST endpoints: the same fields the
// query string carries, unencoded.
func (d Descriptor) RequestBody(creds metricool.Credentials, args Args) map[string]any {
	body := map[string]any{"userId": creds.UserID}
	if d.Kind != KindRange {
		return body
	}
	body["blogId"] = args.BlogID
	if d.DateStyle == DateStyleCompact {
		body["start"] = args.InitDate
		body["end"] = args.EndDate
	} else {
		body["from"] = args.InitDate + "T" + startOfDay
		body["to"] = args.EndDate + "T" + d.EndOfDay
	}
	return body
}

// validate checks one entry after YAML decoding and fills defaults.
func (d *Descriptor) validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if d.FailureLabel == "" {
		return fmt.Errorf("%w: %s: failure_label is required", ErrInvalidDescriptor, d.Name)
	}
	if !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("%w: %s: path must start with /", ErrInvalidDescriptor, d.Name)
	}

	d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	if d.Method == "" {
		d.Method = http.MethodGet
	}
	if d.Method != http.MethodGet && d.Method != http.MethodPost {
		return fmt.Errorf("%w: %s: method %q not supported", ErrInvalidDescriptor, d.Name, d.Method)
	}

	switch d.Kind {
	case KindProfiles:
		return nil
	case KindRange:
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidDescriptor, d.Name, d.Kind)
	}

	switch d.DateStyle {
	case DateStyleCompact:
		if d.EndOfDay != "" {
			return fmt.Errorf("%w: %s: compact dates take no end_of_day", ErrInvalidDescriptor, d.Name)
		}
	case DateStyleISO:
		if d.EndOfDay != "00:00:00" && d.EndOfDay != "23:59:59" {
			return fmt.Errorf("%w: %s: end_of_day must be 00:00:00 or 23:59:59", ErrInvalidDescriptor, d.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown date_style %q", ErrInvalidDescriptor, d.Name, d.DateStyle)
	}
	return nil
}
