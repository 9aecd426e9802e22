package argstr

import (
	"fmt"
	"strconv"
	"strings"

	"taskrun/internal/task"
)

// Parse splits s on "," into "k=v" pairs and parses each v as a literal
// restricted to integer, float, boolean, null, or a quoted string. A
// malformed pair returns an "invalid argument" error.
func Parse(s string) (task.Args, error) {
	args := task.NewArgs()
	s = strings.TrimSpace(s)
	if s == "" {
		return args, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return args, fmt.Errorf("invalid argument: %q", pair)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return args, fmt.Errorf("invalid argument: %q", pair)
		}
		val, err := parseLiteral(strings.TrimSpace(parts[1]))
		if err != nil {
			return args, fmt.Errorf("invalid argument: %q: %w", pair, err)
		}
		args.Set(key, val)
	}
	return args, nil
}

func parseLiteral(v string) (any, error) {
	switch v {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null", "":
		return nil, nil
	}
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		return unescape(v[1 : len(v)-1]), nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return int(i), nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("unrecognized literal %q", v)
}

func unescape(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\'`, "'", `\\`, `\`)
	return r.Replace(s)
}
