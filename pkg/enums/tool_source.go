package enums

// ToolSource records how a tool entered the catalog.
type ToolSource string

const (
	ToolSourceScraped   ToolSource = "scraped"
	ToolSourceSubmitted ToolSource = "submitted"
)

var validToolSources = []ToolSource{
	ToolSourceScraped,
	ToolSourceSubmitted,
}

// IsValid reports whether the value matches a known ToolSource.
func (v ToolSource) IsValid() bool {
	for _, candidate := range validToolSources {
		if candidate == v {
			return true
		}
	}
	return false
}
