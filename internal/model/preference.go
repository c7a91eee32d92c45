package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"time"
)

type Preference struct {
	Budget    *float64  `json:"budget"`
	Vibes     []string  `json:"vibes"`
	Interests []string  `json:"interests"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Preferences maps user id to Preference and keeps insertion order,
// including across JSON round trips.
type Preferences struct {
	keys []string
	byID map[string]Preference
}

func (p Preferences) Get(userID string) (Preference, bool) {
	pref, ok := p.byID[userID]
	return pref, ok
}

// Set replaces an existing entry in place or appends a new one.
func (p *Preferences) Set(userID string, pref Preference) {
	if p.byID == nil {
		p.byID = make(map[string]Preference)
	}
	if _, ok := p.byID[userID]; !ok {
		p.keys = append(p.keys, userID)
	}
	p.byID[userID] = pref
}

func (p Preferences) Len() int {
	return len(p.keys)
}

func (p Preferences) All() iter.Seq2[string, Preference] {
	return func(yield func(string, Preference) bool) {
		for _, k := range p.keys {
			if !yield(k, p.byID[k]) {
				return
			}
		}
	}
}

func (p Preferences) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.byID[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Preferences) UnmarshalJSON(data []byte) error {
	*p = Preferences{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("preferences: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("preferences: expected key, got %v", tok)
		}
		var pref Preference
		if err := dec.Decode(&pref); err != nil {
			return fmt.Errorf("preferences[%s]: %w", key, err)
		}
		p.Set(key, pref)
	}
	_, err = dec.Token()
	return err
}
