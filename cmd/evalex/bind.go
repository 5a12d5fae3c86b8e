package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/zephyrtronium/evalex"
)

// loadData binds the entries of a YAML mapping as variables. Nested
// sequences and mappings become arrays and structures.
func loadData(vars map[string]evalex.Value, b []byte, cfg *evalex.Config) error {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	for k, x := range m {
		v, err := evalex.ValueOf(x, cfg.MathContext())
		if err != nil {
			return fmt.Errorf("variable %s: %w", k, err)
		}
		vars[k] = v
	}
	return nil
}

// given evaluates a name=expr definition with the variables defined so far
// and binds the result.
func given(vars map[string]evalex.Value, def string, cfg *evalex.Config) error {
	name, src, ok := strings.Cut(def, "=")
	if !ok {
		return fmt.Errorf(`variable definitions must be "name=expr", not %q`, def)
	}
	name, src = strings.TrimSpace(name), strings.TrimSpace(src)
	e := evalex.NewWithConfig(src, cfg)
	for k, v := range vars {
		e.Set(k, v)
	}
	r, err := e.Evaluate()
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	slog.Debug("given", slog.String("name", name), slog.String("value", r.String()))
	vars[name] = r
	return nil
}
