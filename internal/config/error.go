package config

import (
	"fmt"
	"strings"
)

// ConfigError collects everything wrong with one config file so the user
// fixes it in a single pass, not one run per problem.
type ConfigError struct {
	Path    string
	Missing []string // ${VAR} references with no value in the environment
	Errors  []string // validation failures
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config %s:", e.Path)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "\n  unresolved environment variables: %s", strings.Join(e.Missing, ", "))
	}
	for _, msg := range e.Errors {
		fmt.Fprintf(&b, "\n  %s", msg)
	}
	return b.String()
}
