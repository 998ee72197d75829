package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Scalar is a requirement or consequence value: either text or a number.
type Scalar struct {
	text     string
	number   float64
	isNumber bool
}

// Text returns a textual scalar.
func Text(v string) Scalar { return Scalar{text: v} }

// Number returns a numeric scalar.
func Number(v float64) Scalar { return Scalar{number: v, isNumber: true} }

// IsNumber reports whether the scalar was written as a number.
func (s Scalar) IsNumber() bool { return s.isNumber }

// String renders the scalar as text; numbers use the shortest exact form.
func (s Scalar) String() string {
	if s.isNumber {
		return strconv.FormatFloat(s.number, 'f', -1, 64)
	}
	return s.text
}

// Int interprets the scalar as an integer. Numeric text is accepted.
func (s Scalar) Int() (int, bool) {
	if s.isNumber {
		return int(s.number), true
	}
	n, err := strconv.Atoi(strings.TrimSpace(s.text))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.isNumber {
		return json.Marshal(s.number)
	}
	return json.Marshal(s.text)
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = Scalar{}
		return nil
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Text(v)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value must be a string or number: %s", data)
	}
	*s = Number(n)
	return nil
}
