package money

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Amount is an amount as a client sent it. JSON numbers and formatted
// strings ("1,500,000 ریال") are both accepted and kept as text until Parse.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*a = Amount(n.String())
	return nil
}

// Int parses the amount.
func (a Amount) Int() (int64, error) { return Parse(string(a)) }
