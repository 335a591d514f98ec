package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SeasonEpisodes lists the episodes watched within one season.
type SeasonEpisodes struct {
	Season   int
	Episodes []int
}

// SeriesDetail is the typed form of a series detail string
// "season,ep1,ep2;season,ep1".
type SeriesDetail struct {
	Seasons []SeasonEpisodes
}

// ParseSeriesDetail decodes and validates a series detail string.
func ParseSeriesDetail(s string) (SeriesDetail, error) {
	var d SeriesDetail
	s = strings.TrimSpace(s)
	if s == "" {
		return d, &ValidationError{Field: "detail", Message: "at least one season row is required"}
	}

	for i, segment := range strings.Split(s, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parts := strings.Split(segment, ",")

		season, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || season <= 0 {
			return SeriesDetail{}, &ValidationError{
				Field:   "detail",
				Message: fmt.Sprintf("row %d: season must be a positive number", i+1),
			}
		}

		row := SeasonEpisodes{Season: season}
		for _, tok := range parts[1:] {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			ep, err := strconv.Atoi(tok)
			if err != nil || ep <= 0 {
				return SeriesDetail{}, &ValidationError{
					Field:   "detail",
					Message: fmt.Sprintf("row %d: episode %q must be a positive number", i+1, tok),
				}
			}
			row.Episodes = append(row.Episodes, ep)
		}
		if len(row.Episodes) == 0 {
			return SeriesDetail{}, &ValidationError{
				Field:   "detail",
				Message: fmt.Sprintf("row %d: at least one episode is required", i+1),
			}
		}
		d.Seasons = append(d.Seasons, row)
	}

	if len(d.Seasons) == 0 {
		return d, &ValidationError{Field: "detail", Message: "at least one season row is required"}
	}
	return d, nil
}

// String encodes the detail back into its on-disk form.
func (d SeriesDetail) String() string {
	segments := make([]string, 0, len(d.Seasons))
	for _, s := range d.Seasons {
		parts := make([]string, 0, len(s.Episodes)+1)
		parts = append(parts, strconv.Itoa(s.Season))
		for _, ep := range s.Episodes {
			parts = append(parts, strconv.Itoa(ep))
		}
		segments = append(segments, strings.Join(parts, ","))
	}
	return strings.Join(segments, ";")
}

// EpisodeCount returns the number of episodes across all seasons.
func (d SeriesDetail) EpisodeCount() int {
	n := 0
	for _, s := range d.Seasons {
		n += len(s.Episodes)
	}
	return n
}

// CountSeriesEpisodes counts episode tokens in a raw series detail without
// validating them, so legacy or hand-edited rows still contribute.
func CountSeriesEpisodes(detail string) int {
	n := 0
	for _, segment := range strings.Split(detail, ";") {
		parts := strings.Split(strings.TrimSpace(segment), ",")
		for _, tok := range parts[1:] {
			if strings.TrimSpace(tok) != "" {
				n++
			}
		}
	}
	return n
}

// SportDetail is the typed form of a sport detail string.
type SportDetail struct {
	Hours   int
	Minutes int
}

var (
	sportHoursRe   = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(hours|hour|saat|h)(?:\b|\d)`)
	sportMinutesRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(minutes|minute|dakika|min|m)\b`)
	sportColonRe   = regexp.MustCompile(`^\s*(\d+):(\d{1,2})\s*$`)
	sportPairRe    = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s*$`)
	sportBareRe    = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*$`)
)

// ParseSportDetail reads a duration from free text. It understands
// "N hour(s)/saat/h", "N minute(s)/dakika/min/m", "H:MM", "H M" and a bare
// number of minutes. Unrecognized text yields a zero duration.
func ParseSportDetail(s string) SportDetail {
	var hours, minutes float64

	if m := sportColonRe.FindStringSubmatch(s); m != nil {
		hours = parseNumber(m[1])
		minutes = parseNumber(m[2])
		return normalizeSport(hours, minutes)
	}
	if m := sportPairRe.FindStringSubmatch(s); m != nil {
		hours = parseNumber(m[1])
		minutes = parseNumber(m[2])
		return normalizeSport(hours, minutes)
	}

	matched := false
	if m := sportHoursRe.FindStringSubmatch(s); m != nil {
		hours = parseNumber(m[1])
		matched = true
	}
	if m := sportMinutesRe.FindStringSubmatch(s); m != nil {
		minutes = parseNumber(m[1])
		matched = true
	}
	if !matched {
		if m := sportBareRe.FindStringSubmatch(s); m != nil {
			minutes = parseNumber(m[1])
		}
	}
	return normalizeSport(hours, minutes)
}

// String encodes the duration in the "H hours M minutes" form.
func (d SportDetail) String() string {
	return fmt.Sprintf("%d hours %d minutes", d.Hours, d.Minutes)
}

// TotalHours returns the duration in fractional hours.
func (d SportDetail) TotalHours() float64 {
	return float64(d.Hours) + float64(d.Minutes)/60
}

func normalizeSport(hours, minutes float64) SportDetail {
	total := int(hours*60 + minutes + 0.5)
	return SportDetail{Hours: total / 60, Minutes: total % 60}
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}

// BookPages parses a book detail (pages read). Non-numeric text counts as 0.
func BookPages(detail string) int {
	n, err := strconv.Atoi(strings.TrimSpace(detail))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
