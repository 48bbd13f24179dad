// Package campaign renders personalized outreach messages for scored
// prospects using Liquid templates keyed by primary driver.
package campaign

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// Engine wraps a Liquid engine with template caching and the filters the
// outreach templates rely on. Every placeholder in a template goes through
// the default filter, so a missing binding renders the documented fallback
// phrase instead of a raw token.
type Engine struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewEngine creates a template engine with the outreach filters registered.
func NewEngine() *Engine {
	e := &Engine{engine: liquid.NewEngine()}

	// {{ first_name | default: "there" }}
	e.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" || strVal == "0" {
			return defaultVal
		}
		return value
	})

	return e
}

// Render parses (with caching) and renders a template against bindings.
func (e *Engine) Render(name, source string, bindings map[string]interface{}) (string, error) {
	var tmpl *liquid.Template
	if cached, ok := e.cache.Load(name); ok {
		tmpl = cached.(*liquid.Template)
	} else {
		parsed, err := e.engine.ParseString(source)
		if err != nil {
			return "", fmt.Errorf("parse template %s: %w", name, err)
		}
		e.cache.Store(name, parsed)
		tmpl = parsed
	}

	out, err := tmpl.Render(bindings)
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return string(out), nil
}
