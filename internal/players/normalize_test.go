package players

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/ninedt-etl/internal/domain"
	"github.com/park285/ninedt-etl/internal/source"
)

func decode(t *testing.T, in string) []source.PlayerDoc {
	t.Helper()
	docs, err := source.ReadPlayersJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPlayersJSON: %v", err)
	}
	return docs
}

func TestNormalize(t *testing.T) {
	docs := decode(t, `[{"id": 7, "data": {"gender": "male", "name": {"title": "mr", "first": " leo ", "last": "park"},
	  "location": {"street": "1 main st", "city": "st. george, ut", "state": "utah", "postcode": 84770},
	  "email": "leo@example.com", "dob": "1985-11-30 23:59:59", "registered": "2012-06-01T12:30:00+02:00",
	  "phone": "555-0199", "cell": "555-0198", "nat": "US"}}]`)

	got, err := Normalize(docs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []domain.PlayerProfile{{
		ID: 7, Gender: "male", Title: "mr", First: "leo", Last: "park",
		Street: "1 main st", City: "st. george ut", State: "utah", Postcode: "84770",
		Email:      "leo@example.com",
		DOB:        time.Date(1985, 11, 30, 0, 0, 0, 0, time.UTC),
		Registered: time.Date(2012, 6, 1, 10, 30, 0, 0, time.UTC),
		Phone:      "555-0199", Cell: "555-0198", Nat: "US",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDuplicateIDsKeepLast(t *testing.T) {
	docs := decode(t, `[
	  {"id": 1, "data": {"email": "old@example.com", "dob": "1990-01-01", "registered": "2010-01-01"}},
	  {"id": 2, "data": {"email": "b@example.com", "dob": "1990-01-01", "registered": "2010-01-01"}},
	  {"id": 1, "data": {"email": "new@example.com", "dob": "1990-01-01", "registered": "2010-01-01"}}
	]`)
	got, err := Normalize(docs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[0].Email != "new@example.com" || got[1].ID != 2 {
		t.Fatalf("unexpected profiles: %+v", got)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]string{
		"zero id":     `[{"id": 0, "data": {"dob": "1990-01-01", "registered": "2010-01-01"}}]`,
		"missing dob": `[{"id": 5, "data": {"registered": "2010-01-01"}}]`,
		"bad date":    `[{"id": 5, "data": {"dob": "01/02/1990", "registered": "2010-01-01"}}]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Normalize(decode(t, in)); !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}
