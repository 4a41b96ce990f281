package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/lib/pq"
)

// Tags is an ordered list of tool keywords stored as a Postgres text[].
// A nil list is always written and read back as an empty one.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	return pq.StringArray(t).Value()
}

func (t *Tags) Scan(value any) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return err
	}
	if arr == nil {
		arr = pq.StringArray{}
	}
	*t = Tags(arr)
	return nil
}

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}
