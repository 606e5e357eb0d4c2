package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PlayerDoc is one element of the profile API payload.
type PlayerDoc struct {
	ID   int64      `json:"id"`
	Data PlayerData `json:"data"`
}

type PlayerData struct {
	Gender string `json:"gender"`
	Name   struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Location struct {
		Street   FlexString `json:"street"`
		City     string     `json:"city"`
		State    string     `json:"state"`
		Postcode FlexString `json:"postcode"`
	} `json:"location"`
	Email      string     `json:"email"`
	DOB        FlexString `json:"dob"`
	Registered FlexString `json:"registered"`
	Phone      string     `json:"phone"`
	Cell       string     `json:"cell"`
	Nat        string     `json:"nat"`
}

// FlexString decodes the shapes profile fields come in: plain strings, numbers
// (postcodes), {"date": ...} objects (dob/registered) and {"number", "name"} streets.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if raw, ok := obj["date"]; ok {
			return f.UnmarshalJSON(raw)
		}
		var parts []string
		for _, k := range []string{"number", "name"} {
			if raw, ok := obj[k]; ok {
				var part FlexString
				if err := part.UnmarshalJSON(raw); err != nil {
					return err
				}
				if part != "" {
					parts = append(parts, string(part))
				}
			}
		}
		*f = FlexString(strings.Join(parts, " "))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("unsupported value %s", b)
		}
		*f = FlexString(n.String())
	}
	return nil
}

// ReadPlayersJSON decodes a JSON array of profile documents.
func ReadPlayersJSON(r io.Reader) ([]PlayerDoc, error) {
	var docs []PlayerDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	return docs, nil
}
