// Package env loads KEY=VALUE files into the process environment.
package env

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Load applies each file in order. Variables already set in the process
// environment always win; for the rest, the first file that sets a key wins.
// Missing files are skipped. It returns the files that were read.
func Load(paths ...string) []string {
	pre := map[string]struct{}{}
	for _, e := range os.Environ() {
		if i := strings.IndexByte(e, '='); i > 0 {
			pre[e[:i]] = struct{}{}
		}
	}
	var loaded []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		vars, err := Parse(f)
		_ = f.Close()
		if err != nil {
			continue
		}
		loaded = append(loaded, p)
		for _, kv := range vars {
			if _, ok := pre[kv[0]]; ok {
				continue
			}
			pre[kv[0]] = struct{}{}
			_ = os.Setenv(kv[0], kv[1])
		}
	}
	return loaded
}

// Parse reads KEY=VALUE pairs in file order.
func Parse(r io.Reader) ([][2]string, error) {
	var out [][2]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if k, v, ok := parseLine(sc.Text()); ok {
			out = append(out, [2]string{k, v})
		}
	}
	return out, sc.Err()
}

func parseLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	i := strings.IndexByte(line, '=')
	if i <= 0 {
		return "", "", false
	}
	k := strings.TrimSpace(line[:i])
	v := strings.TrimSpace(line[i+1:])
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return k, v[1 : len(v)-1], true
	}
	if j := strings.Index(v, " #"); j >= 0 {
		v = strings.TrimSpace(v[:j])
	}
	return k, v, true
}
