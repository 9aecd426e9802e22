package assertutil

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"taskrun/internal/task"
)

// AssertDict reports a *task.AssertionError unless every key/value in want
// is present in got with an equal value. Extra keys in got are ignored --
// this checks that got contains want, not that the two are equal.
func AssertDict(got map[string]any, want map[string]any) error {
	var missing []string
	var mismatched []string

	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		gv, ok := got[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		if !reflect.DeepEqual(gv, want[k]) {
			mismatched = append(mismatched, fmt.Sprintf("%s: want %v, got %v", k, want[k], gv))
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("assert_dict failed")
	if len(missing) > 0 {
		fmt.Fprintf(&b, "; missing keys: %s", strings.Join(missing, ", "))
	}
	if len(mismatched) > 0 {
		fmt.Fprintf(&b, "; mismatched: %s", strings.Join(mismatched, "; "))
	}
	return &task.AssertionError{Msg: b.String()}
}
