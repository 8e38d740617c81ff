package manifest

import "fmt"

// ManifestError reports malformed or inconsistent manifest input. It is
// fatal: nothing is provisioned when a manifest fails validation.
type ManifestError struct {
	Entity string // "service", "volume", "network" or "manifest"
	Name   string // offending entity name, if known
	Field  string // offending field, if known
	Reason string
}

func (e *ManifestError) Error() string {
	switch {
	case e.Name != "" && e.Field != "":
		return fmt.Sprintf("manifest: %s %q: %s: %s", e.Entity, e.Name, e.Field, e.Reason)
	case e.Name != "":
		return fmt.Sprintf("manifest: %s %q: %s", e.Entity, e.Name, e.Reason)
	default:
		return fmt.Sprintf("manifest: %s", e.Reason)
	}
}
