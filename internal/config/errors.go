package config

import (
	"fmt"
	"strings"
)

// Problem is one invalid entry of the search matrix.
type Problem struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value,omitempty"`
	Message   string `json:"message"`
}

func (p Problem) String() string {
	if p.Value == "" {
		return fmt.Sprintf("%s: %s", p.Dimension, p.Message)
	}
	return fmt.Sprintf("%s %q: %s", p.Dimension, p.Value, p.Message)
}

// ConfigError reports a malformed search matrix. It is never retried.
type ConfigError struct {
	Problems []Problem
}

func (e *ConfigError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.String())
	}
	return "invalid search matrix:\n- " + strings.Join(lines, "\n- ")
}

func (e *ConfigError) add(dim, value, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Dimension: dim, Value: value, Message: fmt.Sprintf(format, args...)})
}

func (e *ConfigError) orNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}
