package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// IDList is an ordered set of positive ids. Award criteria are stored and
// submitted in several shapes (JSON array, "1,2", "{1,2}", "1;2", a single
// number); every decoder below normalises to this one form.
type IDList []int

// NewIDList returns ids in first-seen order with duplicates and non-positive ids removed
func NewIDList(ids ...int) IDList {
	seen := make(map[int]struct{}, len(ids))
	out := make(IDList, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ParseIDList parses a delimited id string. Brackets, braces and quotes are
// ignored; commas, semicolons and whitespace separate ids.
func ParseIDList(s string) (IDList, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]{}()")
	if s == "" {
		return IDList{}, nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		if f == "" {
			continue
		}
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", f)
		}
		ids = append(ids, id)
	}
	return NewIDList(ids...), nil
}

// Contains reports whether id is in the list
func (l IDList) Contains(id int) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts an array of numbers or numeric strings, a delimited
// string, a bare number or null
func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := idListFrom(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalJSON always emits an array, never null
func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(l))
}

// UnmarshalYAML accepts a sequence or a scalar in the same shapes as JSON
func (l *IDList) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := idListFrom(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Scan reads the criteria_ids column, which may hold JSON or a delimited string
func (l *IDList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = IDList{}
		return nil
	case []byte:
		return l.scanString(string(v))
	case string:
		return l.scanString(v)
	case int64:
		*l = NewIDList(int(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into IDList", src)
	}
}

func (l *IDList) scanString(s string) error {
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		if err := l.UnmarshalJSON([]byte(s)); err == nil {
			return nil
		}
	}
	parsed, err := ParseIDList(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Value stores the list as a JSON array
func (l IDList) Value() (driver.Value, error) {
	b, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// wholeID rejects numbers with a fractional part
func wholeID(x float64) (int, error) {
	if x != math.Trunc(x) {
		return 0, fmt.Errorf("invalid id %v", x)
	}
	return int(x), nil
}

func idListFrom(raw any) (IDList, error) {
	switch v := raw.(type) {
	case nil:
		return IDList{}, nil
	case string:
		return ParseIDList(v)
	case float64:
		id, err := wholeID(v)
		if err != nil {
			return nil, err
		}
		return NewIDList(id), nil
	case int:
		return NewIDList(v), nil
	case []any:
		ids := make([]int, 0, len(v))
		for _, item := range v {
			switch x := item.(type) {
			case float64:
				id, err := wholeID(x)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
			case int:
				ids = append(ids, x)
			case string:
				id, err := strconv.Atoi(strings.TrimSpace(x))
				if err != nil {
					return nil, fmt.Errorf("invalid id %q", x)
				}
				ids = append(ids, id)
			default:
				return nil, fmt.Errorf("invalid id %v", item)
			}
		}
		return NewIDList(ids...), nil
	default:
		return nil, fmt.Errorf("unsupported id list %T", raw)
	}
}
