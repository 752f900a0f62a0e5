package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field extraction over loosely structured page text. A pattern miss is not
// an error for the string and numeric kinds: the caller gets the kind's zero
// value and the record stays best-effort. Dates are the exception, because a
// race without a date is not a usable record; ExtractDate reports the miss
// instead of defaulting.

const dateLayout = "2006年1月2日"

var dateRe = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`)

// extract applies re to text and returns the first capturing group, or the
// whole match when the pattern has no groups. Returns "" on miss.
func extract(text string, re *regexp.Regexp) string {
	if text == "" {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if re.NumSubexp() > 0 {
		return m[1]
	}
	return m[0]
}

func ExtractString(text string, re *regexp.Regexp) string {
	return extract(text, re)
}

// ExtractInt matches against text with thousands separators removed, so a
// pattern like `\d+` sees "1,234" as one number.
func ExtractInt(text string, re *regexp.Regexp) int {
	raw := extract(strings.ReplaceAll(text, ",", ""), re)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func ExtractFloat(text string, re *regexp.Regexp) float64 {
	raw := extract(strings.ReplaceAll(text, ",", ""), re)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// ExtractDate finds a "2006年1月2日" date anywhere in text.
func ExtractDate(text string) (time.Time, error) {
	raw := extract(text, dateRe)
	if raw == "" {
		return time.Time{}, fmt.Errorf("no date in %q", text)
	}
	return time.Parse(dateLayout, raw)
}

// Canonicalize maps value through table, passing unmapped values through
// unchanged. It never fails; the tables are deliberately partial.
func Canonicalize(value string, table map[string]string) string {
	if mapped, ok := table[value]; ok {
		return mapped
	}
	return value
}
