package types

import (
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSON/JSONB column value into dest.
func scanJSON(name string, value any, dest any) error {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("%s: unsupported scan type %T", name, value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
