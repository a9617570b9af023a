package mode

// Mode is the version strategy of a search.
type Mode string

// Search mode constants.
const (
	// Latest returns only the head revision of each story.
	Latest Mode = "latest"
	// AllVersions matches any revision and returns the chain heads.
	AllVersions Mode = "all_versions"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Latest || m == AllVersions
}
