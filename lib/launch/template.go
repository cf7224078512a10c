// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// defaultTemplate is the built-in client argument template, used when
// the configuration names no template file.
const defaultTemplate = `// Arguments passed to every rover client. {name} and {port} are
// replaced per rover before spawn.
[
	"--name", "{name}",
	"--port", "{port}",
]
`

// Template renders per-rover client argument lists. Templates are
// authored as JSONC arrays of strings (JSON extended with comments
// and trailing commas); the placeholders {name} and {port} are
// substituted at render time.
type Template struct {
	args []string
}

// ParseTemplate strips JSONC comments and trailing commas from data,
// then unmarshals the result into a Template.
func ParseTemplate(data []byte) (*Template, error) {
	stripped := jsonc.ToJSON(data)

	var args []string
	if err := json.Unmarshal(stripped, &args); err != nil {
		return nil, fmt.Errorf("parsing argument template: %w", err)
	}
	for i, arg := range args {
		if arg == "" {
			return nil, fmt.Errorf("argument template entry %d is empty", i)
		}
	}
	return &Template{args: args}, nil
}

// LoadTemplate reads a JSONC template file from disk and parses it.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tmpl, err := ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tmpl, nil
}

// DefaultTemplate returns the built-in argument template.
func DefaultTemplate() *Template {
	tmpl, err := ParseTemplate([]byte(defaultTemplate))
	if err != nil {
		panic("launch: built-in argument template is invalid: " + err.Error())
	}
	return tmpl
}

// Render substitutes the rover's name and assigned port into the
// template and returns the final argument list.
func (t *Template) Render(name string, port int) []string {
	portText := strconv.Itoa(port)
	args := make([]string, len(t.args))
	for i, arg := range t.args {
		arg = strings.ReplaceAll(arg, "{name}", name)
		arg = strings.ReplaceAll(arg, "{port}", portText)
		args[i] = arg
	}
	return args
}
