package domain

// DefaultKeyPrefix namespaces every key newsdex reads or writes.
const DefaultKeyPrefix = "newsdex:"

// DefaultSection is the content partition searched when a request names none.
const DefaultSection = "wire"

// Pagination limits shared with the backing index.
const (
	// DefaultPageSize is used when a request does not set size.
	DefaultPageSize = 25
	// MaxResultWindow is the index pagination ceiling: from must stay below it.
	MaxResultWindow = 1000
	// AllVersionsCandidates is the candidate window gathered across revisions
	// before chain heads are resolved.
	AllVersionsCandidates = 1000
	// DefaultMaxChainHops bounds the direct-link walk over next-version links.
	DefaultMaxChainHops = 100
)
