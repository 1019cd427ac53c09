package catalog

import "fmt"

// ConfigInvalidError reports a catalog validation failure. It is always
// fatal at load time and is never surfaced as a runtime error.
type ConfigInvalidError struct {
	Catalog string // "field", "index", or "counter"
	Entry   string // identifies the offending entry (e.g. its dst, name, or index)
	Reason  string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("%s catalog: entry %q: %s", e.Catalog, e.Entry, e.Reason)
}

func invalidf(catalog, entry, format string, args ...any) error {
	return &ConfigInvalidError{Catalog: catalog, Entry: entry, Reason: fmt.Sprintf(format, args...)}
}
