package models

// CachedRecord is one product name kept in the lookup cache. The JSON tags
// match the blob the browser plugin kept in localStorage.
type CachedRecord struct {
	Code         string `json:"artnr"`
	Name         string `json:"name"`
	ExtendedName string `json:"extended"`
}

// Product is a single entry returned by the catalog search.
type Product struct {
	Code         string
	Name         string
	ExtendedName string
}

// ToCachedRecord keys the product under the queried code.
func (p Product) ToCachedRecord(code string) CachedRecord {
	return CachedRecord{
		Code:         code,
		Name:         p.Name,
		ExtendedName: p.ExtendedName,
	}
}

// Outcome is the normal (non-error) result of a resolution.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
)

// Source tells where a found name came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// Result is what the resolver hands to the presentation layer.
type Result struct {
	Code      string
	Outcome   Outcome
	Formatted string
	Record    CachedRecord
	Source    Source
}

// Found reports whether a name was resolved.
func (r Result) Found() bool {
	return r.Outcome == OutcomeFound
}

// NotFound builds the NotFound outcome for code.
func NotFound(code string) Result {
	return Result{Code: code, Outcome: OutcomeNotFound}
}
