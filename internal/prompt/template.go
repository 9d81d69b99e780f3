// Package prompt builds the text sent to the completion service for each
// dashboard feature.
package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var ErrMissingVariable = errors.New("missing template variable")

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render fills {{name}} placeholders from vars in a single pass, so values
// containing braces are never expanded. Every placeholder must have a value.
func Render(tmpl string, vars map[string]string) (string, error) {
	var missing []string
	for _, name := range Variables(tmpl) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}

	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		return vars[match[2:len(match)-2]]
	}), nil
}

// Variables lists the distinct placeholder names in tmpl in order of first use.
func Variables(tmpl string) []string {
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(tmpl, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}
