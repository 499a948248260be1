package wizard

import (
	"net/url"
	"sort"
)

// Variables holds the wizard variables posted with a request. A missing key means the
// variable was not posted.
type Variables map[string]string

// Get returns the value of name and whether it was posted.
func (v Variables) Get(name string) (string, bool) {
	value, ok := v[name]
	return value, ok
}

// Value returns the value of name or an empty string.
func (v Variables) Value(name string) string {
	return v[name]
}

// Names returns the posted variable names in sorted order.
func (v Variables) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// collectVariables pulls each declared name from the form.
func collectVariables(form url.Values, names []string) Variables {
	vars := make(Variables, len(names))
	for _, name := range names {
		if values, ok := form[name]; ok && len(values) > 0 {
			vars[name] = values[0]
		}
	}
	return vars
}
