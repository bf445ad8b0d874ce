package smartthings

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/pronovic/vplan/internal/model"
)

// Anchor is the reference point a rule's schedule is relative to. The
// values are the provider's wire names.
type Anchor string

const (
	AnchorSunrise  Anchor = "Sunrise"
	AnchorSunset   Anchor = "Sunset"
	AnchorMidnight Anchor = "Midnight"
	AnchorNoon     Anchor = "Noon"
)

// Day is a provider day-of-week name.
type Day string

// Days in the provider's fixed Sun->Sat order.
var allDays = []Day{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var (
	weekdays = []Day{"Mon", "Tue", "Wed", "Thu", "Fri"}
	weekends = []Day{"Sun", "Sat"}
)

// TimeSpec is a fully resolved trigger time: an anchor plus an optional
// offset in minutes, as the provider's scheduling primitive expects.
type TimeSpec struct {
	Anchor Anchor
	Offset *int // minutes relative to the anchor, nil for none
}

var (
	variationRegex = regexp.MustCompile(`^([+]/-|[+]|-) (\d+) (hour(s)?|minute(s)?|second(s)?)$`)
	clockRegex     = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
)

// ParseDay expands a single day token into the matching set of days.
// Tokens are matched case- and whitespace-insensitively.
func ParseDay(token string) ([]Day, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "all", "every":
		return allDays, nil
	case "weekday", "weekdays":
		return weekdays, nil
	case "weekend", "weekends":
		return weekends, nil
	case "sun", "sunday":
		return []Day{"Sun"}, nil
	case "mon", "monday":
		return []Day{"Mon"}, nil
	case "tue", "tuesday":
		return []Day{"Tue"}, nil
	case "wed", "wednesday":
		return []Day{"Wed"}, nil
	case "thu", "thursday":
		return []Day{"Thu"}, nil
	case "fri", "friday":
		return []Day{"Fri"}, nil
	case "sat", "saturday":
		return []Day{"Sat"}, nil
	default:
		return nil, model.Invalid("invalid trigger day %q", token)
	}
}

// ParseDays unions ParseDay over all tokens, deduplicates, and returns the
// result in fixed Sun->Sat order.
func ParseDays(tokens []string) ([]Day, error) {
	if len(tokens) == 0 {
		return nil, model.Invalid("trigger needs at least one day")
	}
	seen := make(map[Day]bool)
	for _, token := range tokens {
		days, err := ParseDay(token)
		if err != nil {
			return nil, err
		}
		for _, day := range days {
			seen[day] = true
		}
	}
	var result []Day
	for _, day := range allDays {
		if seen[day] {
			result = append(result, day)
		}
	}
	return result, nil
}

// A variation magnitude may not exceed one day.
const maxVariationMinutes = 24 * 60

// ParseVariation converts a variation spec into a randomized number of
// minutes, or nil when variation is disabled. The random value is drawn
// fresh on every call: [0, m] for "+", [-m, 0] for "-", [-m, m] for "+/-".
func ParseVariation(spec string) (*int, error) {
	normalized := strings.ToLower(strings.TrimSpace(spec))
	if normalized == "disabled" || normalized == "none" {
		return nil, nil
	}
	match := variationRegex.FindStringSubmatch(normalized)
	if match == nil {
		return nil, model.Invalid("invalid variation %q", spec)
	}
	magnitude, err := strconv.Atoi(match[2])
	if err != nil {
		return nil, model.Invalid("invalid variation %q", spec)
	}
	switch {
	case strings.HasPrefix(match[3], "hour"):
		if magnitude > maxVariationMinutes/60 {
			return nil, model.Invalid("variation %q is too large: at most 24 hours", spec)
		}
		magnitude *= 60
	case strings.HasPrefix(match[3], "second"):
		magnitude /= 60
	}
	if magnitude > maxVariationMinutes {
		return nil, model.Invalid("variation %q is too large: at most 24 hours", spec)
	}
	var minutes int
	switch match[1] {
	case "+":
		minutes = rand.IntN(magnitude + 1)
	case "-":
		minutes = -rand.IntN(magnitude + 1)
	case "+/-":
		minutes = rand.IntN(2*magnitude+1) - magnitude
	}
	return &minutes, nil
}

// ParseTriggerTime resolves a trigger time spec and an optional variation
// into an anchor plus offset. A clock time becomes a Midnight-anchored
// offset. The provider cannot represent a negative offset from Midnight,
// so for Midnight anchors an offset at or below zero collapses to none;
// solar anchors and Noon keep negative offsets as-is.
func ParseTriggerTime(spec string, variation *int) (TimeSpec, error) {
	normalized := strings.ToLower(strings.TrimSpace(spec))
	switch normalized {
	case "sunrise":
		return TimeSpec{Anchor: AnchorSunrise, Offset: variation}, nil
	case "sunset":
		return TimeSpec{Anchor: AnchorSunset, Offset: variation}, nil
	case "noon":
		return TimeSpec{Anchor: AnchorNoon, Offset: variation}, nil
	case "midnight":
		return TimeSpec{Anchor: AnchorMidnight, Offset: positiveOffset(0, variation)}, nil
	default:
		hour, minute, err := ParseTime(normalized)
		if err != nil {
			return TimeSpec{}, err
		}
		return TimeSpec{Anchor: AnchorMidnight, Offset: positiveOffset(hour*60+minute, variation)}, nil
	}
}

func positiveOffset(base int, variation *int) *int {
	offset := base
	if variation != nil {
		offset += *variation
	}
	if offset <= 0 {
		return nil
	}
	return &offset
}

// ParseTime parses a strict 2-digit HH:MM 24-hour clock time.
func ParseTime(spec string) (hour, minute int, err error) {
	match := clockRegex.FindStringSubmatch(strings.TrimSpace(spec))
	if match == nil {
		return 0, 0, model.Invalid("invalid time %q: expected HH:MM", spec)
	}
	hour, _ = strconv.Atoi(match[1])
	minute, _ = strconv.Atoi(match[2])
	if hour > 23 || minute > 59 {
		return 0, 0, model.Invalid("invalid time %q: hour must be 00-23 and minute 00-59", spec)
	}
	return hour, minute, nil
}
