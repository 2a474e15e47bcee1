package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidParams is returned when a request lacks a parameter the
	// action needs, or carries one it cannot use.
	ErrInvalidParams = errors.New("action: invalid parameters")

	// ErrUnknownAction is returned when an intent names no known action.
	ErrUnknownAction = fmt.Errorf("%w: unknown action", ErrInvalidParams)
)

// Volume bounds accepted by the volume action.
const (
	MinVolume = 0
	MaxVolume = 100
)

// Params carries the typed parameters an action was invoked with.
type Params struct {
	Name    string
	Season  int
	Episode int
	Level   int
	Number  string
}

// Intent is the body of a structured-intent request.
type Intent struct {
	KodiID FlexString  `json:"kodiid"`
	Query  IntentQuery `json:"query"`
}

// IntentQuery selects the action and carries its parameters.
type IntentQuery struct {
	Action  string     `json:"action"`
	Name    string     `json:"name"`
	Season  FlexInt    `json:"season"`
	Episode FlexInt    `json:"episode"`
	Volume  FlexInt    `json:"volume"`
	Number  FlexString `json:"number"`
}

// ParseIntent decodes a structured-intent body.
func ParseIntent(body []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(body, &in); err != nil {
		return Intent{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return in, nil
}

// FlexInt decodes a JSON number or a numeric string. Intent platforms send
// slot values as strings.
type FlexInt struct {
	Value int
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexInt{}
		return nil
	}

	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = FlexInt{}
			return nil
		}
	} else {
		s = string(data)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// Whole floats such as 3.0 are accepted.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || fl != float64(int(fl)) {
			return fmt.Errorf("not an integer: %s", data)
		}
		n = int(fl)
	}
	*f = FlexInt{Value: n, Set: true}
	return nil
}

// FlexString decodes a JSON string or number as a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

// episodeQuery matches "<show> season <n>" with an optional trailing
// "episode" and episode number, as sent by the legacy triggers.
var episodeQuery = regexp.MustCompile(`(?i)^\s*(.+?)\s+season\s+(\d+)(?:\s+episode)?(?:\s+(\d+))?\s*$`)

// Query-string extractors.

func noParams(url.Values) (Params, error) {
	return Params{}, nil
}

func nameFromQuery(q url.Values) (Params, error) {
	name := strings.TrimSpace(q.Get("q"))
	if name == "" {
		return Params{}, fmt.Errorf("%w: query parameter q is required", ErrInvalidParams)
	}
	return Params{Name: name}, nil
}

func numberFromQuery(q url.Values) (Params, error) {
	number := strings.TrimSpace(q.Get("q"))
	if number == "" {
		return Params{}, fmt.Errorf("%w: query parameter q is required", ErrInvalidParams)
	}
	return Params{Number: number}, nil
}

func volumeFromQuery(q url.Values) (Params, error) {
	raw := strings.TrimSpace(q.Get("q"))
	if raw == "" {
		return Params{}, fmt.Errorf("%w: query parameter q is required", ErrInvalidParams)
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return Params{}, fmt.Errorf("%w: volume %q is not a number", ErrInvalidParams, raw)
	}
	return checkVolume(level)
}

func episodeFromQuery(q url.Values) (Params, error) {
	raw := q.Get("q")
	m := episodeQuery.FindStringSubmatch(raw)
	if m == nil {
		return Params{}, fmt.Errorf("%w: q must look like \"<show> season <n> episode\"", ErrInvalidParams)
	}

	season, err := strconv.Atoi(m[2])
	if err != nil {
		return Params{}, fmt.Errorf("%w: season %q", ErrInvalidParams, m[2])
	}

	epRaw := strings.TrimSpace(q.Get("e"))
	if epRaw == "" {
		epRaw = m[3]
	}
	if epRaw == "" {
		return Params{}, fmt.Errorf("%w: query parameter e is required", ErrInvalidParams)
	}
	episode, err := strconv.Atoi(epRaw)
	if err != nil || episode < 1 {
		return Params{}, fmt.Errorf("%w: episode %q", ErrInvalidParams, epRaw)
	}

	return Params{Name: strings.TrimSpace(m[1]), Season: season, Episode: episode}, nil
}

// Intent extractors.

func noIntentParams(IntentQuery) (Params, error) {
	return Params{}, nil
}

func nameFromIntent(in IntentQuery) (Params, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Params{}, fmt.Errorf("%w: query.name is required", ErrInvalidParams)
	}
	return Params{Name: name}, nil
}

func numberFromIntent(in IntentQuery) (Params, error) {
	if in.Number == "" {
		return Params{}, fmt.Errorf("%w: query.number is required", ErrInvalidParams)
	}
	return Params{Number: string(in.Number)}, nil
}

func volumeFromIntent(in IntentQuery) (Params, error) {
	if !in.Volume.Set {
		return Params{}, fmt.Errorf("%w: query.volume is required", ErrInvalidParams)
	}
	return checkVolume(in.Volume.Value)
}

func episodeFromIntent(in IntentQuery) (Params, error) {
	p, err := nameFromIntent(in)
	if err != nil {
		return Params{}, err
	}
	if !in.Season.Set || in.Season.Value < 0 {
		return Params{}, fmt.Errorf("%w: query.season is required", ErrInvalidParams)
	}
	if !in.Episode.Set || in.Episode.Value < 1 {
		return Params{}, fmt.Errorf("%w: query.episode is required", ErrInvalidParams)
	}
	p.Season = in.Season.Value
	p.Episode = in.Episode.Value
	return p, nil
}

func checkVolume(level int) (Params, error) {
	if level < MinVolume || level > MaxVolume {
		return Params{}, fmt.Errorf("%w: volume %d outside %d-%d", ErrInvalidParams, level, MinVolume, MaxVolume)
	}
	return Params{Level: level}, nil
}
