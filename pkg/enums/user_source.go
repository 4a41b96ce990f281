package enums

// UserSource records how a user account was created.
type UserSource string

const (
	UserSourceListed  UserSource = "listed"
	UserSourceScraped UserSource = "scraped"
)

var validUserSources = []UserSource{
	UserSourceListed,
	UserSourceScraped,
}

// IsValid reports whether the value matches a known UserSource.
func (v UserSource) IsValid() bool {
	for _, candidate := range validUserSources {
		if candidate == v {
			return true
		}
	}
	return false
}
