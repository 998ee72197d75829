package scenario

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

// checkOutcome compares a step result with its expect_error option. Without
// the option any error fails the scenario.
func (r *Runner) checkOutcome(state *scenarioState, args map[string]any, err error) error {
	state.lastErr = err
	expected := optionalString(args, "expect_error", "")
	if expected == "" {
		if err != nil {
			return r.failf("unexpected error: %v", err)
		}
		return nil
	}
	if err == nil {
		return r.assertf("expected error %s, got success", expected)
	}
	if got := apperrors.CodeOf(err); string(got) != expected {
		return r.assertf("error code = %s, want %s (%v)", got, expected, err)
	}
	return nil
}

func requiredString(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return ""
}

func readInt(args map[string]any, key string) (int, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case int:
		return typed, true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	value, ok := readInt(args, key)
	if !ok {
		return fallback
	}
	return value
}

func readBool(args map[string]any, key string) (bool, bool) {
	value, ok := args[key]
	if !ok {
		return false, false
	}
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		lower := strings.ToLower(strings.TrimSpace(typed))
		switch lower {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// readStrings reads a Lua sequence of strings. An empty Lua table arrives as
// an empty map and reads as an empty list.
func readStrings(args map[string]any, key string) ([]string, bool, error) {
	value, ok := args[key]
	if !ok {
		return nil, false, nil
	}
	switch typed := value.(type) {
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("%s must list strings", key)
			}
			out = append(out, text)
		}
		return out, true, nil
	case map[string]any:
		if len(typed) == 0 {
			return []string{}, true, nil
		}
	case string:
		return []string{typed}, true, nil
	}
	return nil, true, fmt.Errorf("%s must be a list", key)
}

func readMap(args map[string]any, key string) (map[string]any, bool, error) {
	value, ok := args[key]
	if !ok {
		return nil, false, nil
	}
	typed, ok := value.(map[string]any)
	if !ok {
		return nil, true, fmt.Errorf("%s must be a table keyed by name", key)
	}
	return typed, true, nil
}

// missing returns the entries of want absent from have, sorted.
func missing(have, want []string) []string {
	var out []string
	for _, item := range want {
		if !slices.Contains(have, item) {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// sameJSON reports whether got and want encode to equal JSON values.
func sameJSON(got, want any) (bool, error) {
	gotJSON, err := json.Marshal(got)
	if err != nil {
		return false, err
	}
	wantJSON, err := json.Marshal(want)
	if err != nil {
		return false, err
	}
	var gotValue, wantValue any
	if err := json.Unmarshal(gotJSON, &gotValue); err != nil {
		return false, err
	}
	if err := json.Unmarshal(wantJSON, &wantValue); err != nil {
		return false, err
	}
	gotNorm, _ := json.Marshal(gotValue)
	wantNorm, _ := json.Marshal(wantValue)
	return string(gotNorm) == string(wantNorm), nil
}
