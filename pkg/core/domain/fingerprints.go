package domain

import (
	"bytes"
	"encoding/json"
)

// FingerprintSet is an insertion-ordered set of visitor fingerprints.
// It is stored as a JSON array. A set decoded from a document without a raw
// array is "absent": only its cached count (if any) is known.
type FingerprintSet struct {
	items   []string
	index   map[string]struct{}
	present bool
	hint    int // legacy numeric "uniques" value
}

// NewFingerprintSet builds a present set from the given fingerprints.
func NewFingerprintSet(fps ...string) FingerprintSet {
	s := FingerprintSet{present: true}
	for _, fp := range fps {
		s.Add(fp)
	}
	return s
}

// Add inserts fp if it is not already in the set and reports whether it was new.
func (s *FingerprintSet) Add(fp string) bool {
	s.present = true
	if s.index == nil {
		s.reindex()
	}
	if s.Contains(fp) {
		return false
	}
	s.index[fp] = struct{}{}
	s.items = append(s.items, fp)
	return true
}

func (s *FingerprintSet) reindex() {
	s.index = make(map[string]struct{}, len(s.items))
	for _, fp := range s.items {
		s.index[fp] = struct{}{}
	}
}

// Contains reports whether fp is in the set.
func (s FingerprintSet) Contains(fp string) bool {
	if s.index != nil {
		_, ok := s.index[fp]
		return ok
	}
	for _, v := range s.items {
		if v == fp {
			return true
		}
	}
	return false
}

func (s FingerprintSet) Len() int { return len(s.items) }

// Present reports whether a raw fingerprint list exists.
func (s FingerprintSet) Present() bool { return s.present }

// Items returns a copy of the fingerprints in insertion order.
func (s FingerprintSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// IsZero lets `omitzero` drop absent sets when encoding.
func (s FingerprintSet) IsZero() bool { return !s.present }

func (s FingerprintSet) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON accepts an array of strings. null, numbers and other shapes
// decode to an absent set instead of failing the whole document.
func (s *FingerprintSet) UnmarshalJSON(b []byte) error {
	*s = FingerprintSet{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		var n float64
		if json.Unmarshal(b, &n) == nil && n > 0 {
			s.hint = int(n)
		}
		return nil
	}

	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	s.present = true
	s.index = make(map[string]struct{}, len(raw))
	for _, v := range raw {
		fp, ok := v.(string)
		if !ok {
			continue
		}
		if _, dup := s.index[fp]; dup {
			continue
		}
		s.index[fp] = struct{}{}
		s.items = append(s.items, fp)
	}
	return nil
}
