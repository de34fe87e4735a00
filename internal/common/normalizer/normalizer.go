package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/cleaner"
	"github.com/project-tktt/job-aggregator/internal/domain"
)

const defaultCurrency = "USD"

// Normalizer converts RawJob listings into the canonical Job schema
type Normalizer struct {
	cleaner *cleaner.Cleaner
	now     func() time.Time
}

// NewNormalizer creates a new normalizer
func NewNormalizer(c *cleaner.Cleaner) *Normalizer {
	if c == nil {
		c = cleaner.NewStrictCleaner()
	}
	return &Normalizer{cleaner: c, now: time.Now}
}

// Normalize converts a RawJob to a Job. A listing without a title or identity is a parse failure.
func (n *Normalizer) Normalize(raw *domain.RawJob) (*domain.Job, error) {
	if raw == nil || raw.RawData == nil {
		return nil, fmt.Errorf("%w: empty listing", domain.ErrParseFailure)
	}
	data := raw.RawData

	title := html.UnescapeString(getString(data, "title", "position"))
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", domain.ErrParseFailure)
	}

	url := raw.URL
	if url == "" {
		url = getString(data, "url", "link")
	}
	nativeID := raw.ID
	if nativeID == "" {
		nativeID = getString(data, "id")
	}
	externalID := ExternalID(raw.Source, nativeID, url)
	if externalID == "" {
		return nil, fmt.Errorf("%w: no identifier or url for %q", domain.ErrParseFailure, title)
	}

	job := &domain.Job{
		Source:       raw.Source,
		ExternalID:   externalID,
		Title:        title,
		Company:      html.UnescapeString(getString(data, "company")),
		Location:     html.UnescapeString(getString(data, "location")),
		Description:  n.cleaner.CleanToText(getString(data, "description")),
		Requirements: n.cleaner.CleanToText(getString(data, "requirements")),
		Currency:     getString(data, "currency"),
		Tags:         normalizeTags(getStringArray(data, "tags")),
		URL:          url,
		IsActive:     true,
	}

	job.LocationMode = LocationModeOf(getString(data, "location_type"), job.Location)
	job.EmploymentMode = EmploymentModeOf(getString(data, "employment_type", "job_type"))

	if min, max := salaryBound(getInt(data, "salary_min")), salaryBound(getInt(data, "salary_max")); min > 0 || max > 0 {
		job.SalaryMin, job.SalaryMax = intPtr(min), intPtr(max)
	} else {
		job.SalaryMin, job.SalaryMax = ParseSalary(getString(data, "salary"))
	}
	if job.Currency == "" {
		job.Currency = defaultCurrency
	}

	job.PostedAt = parsePostedAt(data["posted_at"])
	if job.PostedAt.IsZero() {
		job.PostedAt = raw.ExtractedAt
	}
	if job.PostedAt.IsZero() {
		job.PostedAt = n.now()
	}

	return job, nil
}

// ExternalID builds the source-scoped identity: source_nativeID, or source_hash(url) when no native id exists
func ExternalID(source, nativeID, url string) string {
	if nativeID = strings.TrimSpace(nativeID); nativeID != "" {
		return fmt.Sprintf("%s_%s", source, nativeID)
	}
	if url = strings.TrimSpace(url); url != "" {
		return fmt.Sprintf("%s_%s", source, hashContent(url))
	}
	return ""
}

// LocationModeOf picks a location mode from an explicit type or free-text location, defaulting to onsite
func LocationModeOf(values ...string) domain.LocationMode {
	for _, v := range values {
		v = strings.ToLower(v)
		switch {
		case strings.Contains(v, "remote"), strings.Contains(v, "anywhere"):
			return domain.LocationRemote
		case strings.Contains(v, "hybrid"):
			return domain.LocationHybrid
		case strings.Contains(v, "onsite"), strings.Contains(v, "on-site"), strings.Contains(v, "office"):
			return domain.LocationOnsite
		}
	}
	return domain.LocationOnsite
}

// EmploymentModeOf maps free-text employment types, defaulting to full-time
func EmploymentModeOf(text string) domain.EmploymentMode {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "part"):
		return domain.EmploymentPartTime
	case strings.Contains(t, "contract"), strings.Contains(t, "temporary"):
		return domain.EmploymentContract
	case strings.Contains(t, "intern"):
		return domain.EmploymentInternship
	case strings.Contains(t, "freelance"):
		return domain.EmploymentFreelance
	default:
		return domain.EmploymentFullTime
	}
}

// NormalizeTime parses the date formats job boards commonly emit
func NormalizeTime(s string) time.Time {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006",
	}

	s = strings.TrimSpace(s)
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parsePostedAt(val any) time.Time {
	switch v := val.(type) {
	case nil:
		return time.Time{}
	case string:
		if t := NormalizeTime(v); !t.IsZero() {
			return t
		}
	case time.Time:
		return v
	}
	return parseUnixTimestamp(val)
}

// getString tries multiple keys and returns the first non-empty value
func getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := data[key]; ok {
			switch v := val.(type) {
			case string:
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			case int:
				return strconv.Itoa(v)
			case int64:
				return strconv.FormatInt(v, 10)
			}
		}
	}
	return ""
}

func getInt(data map[string]any, keys ...string) int {
	for _, key := range keys {
		if val, ok := data[key]; ok {
			switch v := val.(type) {
			case float64:
				if v > math.MaxInt64 || v < math.MinInt64 {
					return 0
				}
				return int(v)
			case int:
				return v
			case int64:
				return int(v)
			case string:
				if i, err := strconv.Atoi(v); err == nil {
					return i
				}
			}
		}
	}
	return 0
}

func getStringArray(data map[string]any, key string) []string {
	val, ok := data[key]
	if !ok || val == nil {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		var result []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		return ParseKeywords(v)
	}
	return nil
}

func parseUnixTimestamp(val any) time.Time {
	switch v := val.(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC()
	case int64:
		return time.Unix(v, 0).UTC()
	case int:
		return time.Unix(int64(v), 0).UTC()
	case string:
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(ts, 0).UTC()
		}
	}
	return time.Time{}
}

// normalizeTags lower-cases, trims and dedupes tags, keeping first-seen order
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func hashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:16])
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
