// Package flagx lets several independent flag sets share os.Args: each
// loader picks out only the flags it owns and ignores the rest.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// configFlags are the names accepted for the JSON config path.
var configFlags = []string{"-c", "-config", "--config"}

// FilterArgs returns the arguments from args that belong to allowedFlags,
// keeping their values. Both "-c conf.json" and "--config=conf.json" forms
// are understood; a following token starting with "-" is never taken as a
// value. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config file path from args (-c, -config or
// --config). The last occurrence wins; "" means no file was requested.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, configFlags))

	return path
}

// JsonConfigFlags is ConfigPath applied to the process arguments.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:])
}
