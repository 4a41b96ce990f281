package enums

import "fmt"

// ToolStatus describes the moderation state stored in tools.status.
type ToolStatus string

const (
	ToolStatusPending  ToolStatus = "pending"
	ToolStatusApproved ToolStatus = "approved"
	ToolStatusRejected ToolStatus = "rejected"
)

var validToolStatuses = []ToolStatus{
	ToolStatusPending,
	ToolStatusApproved,
	ToolStatusRejected,
}

// IsValid reports whether the value matches a known ToolStatus.
func (v ToolStatus) IsValid() bool {
	for _, candidate := range validToolStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseToolStatus converts the raw string to ToolStatus.
func ParseToolStatus(value string) (ToolStatus, error) {
	for _, candidate := range validToolStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tool status %q", value)
}
