package players

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/ninedt-etl/internal/domain"
	"github.com/park285/ninedt-etl/internal/source"
)

var ErrInvalidProfile = errors.New("invalid player profile")

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize flattens profile documents into player_data rows. A repeated id keeps
// its first position and its last values.
func Normalize(docs []source.PlayerDoc) ([]domain.PlayerProfile, error) {
	out := make([]domain.PlayerProfile, 0, len(docs))
	seen := make(map[int64]int, len(docs))
	for i, doc := range docs {
		p, err := normalizeOne(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d (id=%d): %v", ErrInvalidProfile, i, doc.ID, err)
		}
		if at, ok := seen[p.ID]; ok {
			out[at] = p
			continue
		}
		seen[p.ID] = len(out)
		out = append(out, p)
	}
	return out, nil
}

func normalizeOne(doc source.PlayerDoc) (domain.PlayerProfile, error) {
	if doc.ID <= 0 {
		return domain.PlayerProfile{}, errors.New("id must be positive")
	}
	d := doc.Data
	dob, err := parseTime(string(d.DOB))
	if err != nil {
		return domain.PlayerProfile{}, fmt.Errorf("dob: %w", err)
	}
	registered, err := parseTime(string(d.Registered))
	if err != nil {
		return domain.PlayerProfile{}, fmt.Errorf("registered: %w", err)
	}
	return domain.PlayerProfile{
		ID:         doc.ID,
		Gender:     strings.TrimSpace(d.Gender),
		Title:      strings.TrimSpace(d.Name.Title),
		First:      strings.TrimSpace(d.Name.First),
		Last:       strings.TrimSpace(d.Name.Last),
		Street:     strings.TrimSpace(string(d.Location.Street)),
		City:       strings.TrimSpace(strings.ReplaceAll(d.Location.City, ",", "")),
		State:      strings.TrimSpace(d.Location.State),
		Postcode:   strings.TrimSpace(string(d.Location.Postcode)),
		Email:      strings.TrimSpace(d.Email),
		DOB:        truncateToDate(dob),
		Registered: registered,
		Phone:      strings.TrimSpace(d.Phone),
		Cell:       strings.TrimSpace(d.Cell),
		Nat:        strings.TrimSpace(d.Nat),
	}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
