package player

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed controller.js
var controllerJS string

// Script is a compiled chain, ready to evaluate in a page.
type Script struct {
	Name       string
	expression string
}

// Expression returns the JavaScript expression that runs the chain. It
// always evaluates to a plain object and never throws.
func (s Script) Expression() string {
	return s.expression
}

// Compile validates c and turns it into a Script named name.
func Compile(name string, c Chain) (Script, error) {
	if err := c.Validate(); err != nil {
		return Script{}, fmt.Errorf("%s chain: %w", name, err)
	}
	plan, err := json.Marshal(c)
	if err != nil {
		return Script{}, fmt.Errorf("%s chain: %w", name, err)
	}
	return Script{
		Name:       name,
		expression: "(" + controllerJS + ")(" + string(plan) + ")",
	}, nil
}

// MustCompile is like Compile but panics on an invalid chain. It is meant
// for built-in chains.
func MustCompile(name string, c Chain) Script {
	s, err := Compile(name, c)
	if err != nil {
		panic(err)
	}
	return s
}
