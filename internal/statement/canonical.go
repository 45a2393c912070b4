package statement

import "strings"

// Match records which source header a canonical field resolved to.
type Match struct {
	Field   string `json:"field" yaml:"field"`
	Header  string `json:"header" yaml:"header"`
	Column  int    `json:"column" yaml:"column"`
	Synonym string `json:"synonym" yaml:"synonym"`
}

// Mapping is the result of canonicalizing one header row. Matches are kept
// in schema order.
type Mapping struct {
	matches []Match
}

// Len returns the number of canonical fields that matched.
func (m Mapping) Len() int {
	return len(m.matches)
}

// Lookup returns the match for a canonical field.
func (m Mapping) Lookup(field string) (Match, bool) {
	for _, mt := range m.matches {
		if mt.Field == field {
			return mt, true
		}
	}
	return Match{}, false
}

// Matches returns the match trace in schema order.
func (m Mapping) Matches() []Match {
	out := make([]Match, len(m.matches))
	copy(out, m.matches)
	return out
}

// Canonicalize maps source headers onto the schema. For each field, in
// schema order, the first header (in header order) whose lowercase text
// contains any of the field's lowercase synonyms is its match. One header
// may satisfy several fields; every such field keeps it.
func Canonicalize(headers []string, schema Schema) Mapping {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var m Mapping
	for _, field := range schema {
		if mt, ok := matchField(field, headers, lowered); ok {
			m.matches = append(m.matches, mt)
		}
	}
	return m
}

func matchField(field Field, headers, lowered []string) (Match, bool) {
	for col, h := range lowered {
		for _, syn := range field.Synonyms {
			s := strings.ToLower(syn)
			if s == "" {
				continue
			}
			if strings.Contains(h, s) {
				return Match{
					Field:   field.Name,
					Header:  strings.TrimSpace(headers[col]),
					Column:  col,
					Synonym: syn,
				}, true
			}
		}
	}
	return Match{}, false
}
