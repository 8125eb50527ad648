package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	boldRe      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe    = regexp.MustCompile(`\*(.*?)\*`)
	underlineRe = regexp.MustCompile(`__(.*?)__`)
	strikeRe    = regexp.MustCompile(`~~(.*?)~~`)
	inlineRe    = regexp.MustCompile("`(.*?)`")
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	headerRe    = regexp.MustCompile(`#{1,6}\s*(.*)`)
	quoteRe     = regexp.MustCompile(`>\s*(.*)`)
	linkRe      = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	nonDigitRe  = regexp.MustCompile(`[^0-9]`)
)

// CleanTextForSpeech strips markdown and HTML so speech synthesis does not
// read formatting characters aloud.
func CleanTextForSpeech(text string) string {
	out := codeBlockRe.ReplaceAllString(text, "")
	out = boldRe.ReplaceAllString(out, "$1")
	out = italicRe.ReplaceAllString(out, "$1")
	out = underlineRe.ReplaceAllString(out, "$1")
	out = strikeRe.ReplaceAllString(out, "$1")
	out = inlineRe.ReplaceAllString(out, "$1")
	out = headerRe.ReplaceAllString(out, "$1")
	out = quoteRe.ReplaceAllString(out, "$1")
	out = linkRe.ReplaceAllString(out, "$1")
	out = htmlTagRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// NormalizeNumber strips formatting from a phone number, leaving digits only.
func NormalizeNumber(number string) string {
	return nonDigitRe.ReplaceAllString(number, "")
}

// FormatRelativeTime renders a timestamp as a short relative label for
// session lists ("just now", "5m ago", "3h ago", "2d ago").
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// ConvertTo24Hour converts a 12-hour display time ("2:30 PM") to 24-hour
// form ("14:30"). Input already in 24-hour form passes through unchanged.
func ConvertTo24Hour(display string) string {
	s := strings.TrimSpace(display)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	hasAM := strings.HasSuffix(upper, "AM")
	hasPM := strings.HasSuffix(upper, "PM")
	if !hasAM && !hasPM {
		return s
	}
	trimmed := strings.TrimSpace(upper[:len(upper)-2])
	parts := strings.SplitN(trimmed, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return s
	}
	minute := "00"
	if len(parts) == 2 {
		minute = parts[1]
	}
	if hasPM && hour != 12 {
		hour += 12
	}
	if hasAM && hour == 12 {
		hour = 0
	}
	return fmt.Sprintf("%02d:%s", hour, minute)
}

// FormatTimeForDisplay converts a 24-hour time ("14:30") to the 12-hour
// display form ("2:30 PM") used everywhere reminders are shown or spoken.
func FormatTimeForDisplay(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		return s
	}
	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return s
	}
	minute := "00"
	if len(parts) == 2 {
		minute = parts[1]
	}
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%s %s", hour, minute, suffix)
}

// ReminderDue parses a reminder's date and display time into an absolute
// local time. Returns an error when either part is missing or malformed.
func ReminderDue(r Reminder) (time.Time, error) {
	if r.Date == "" || r.Time == "" {
		return time.Time{}, &ValidationError{Field: "reminder", Reason: "missing date or time"}
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+ConvertTo24Hour(r.Time), time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return due, nil
}
