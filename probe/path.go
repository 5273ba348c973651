package probe

import (
	"os"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
)

// ExpandEnv expands %VAR% references the way the Windows shell does.
// Unknown variables are left in place rather than removed.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.IndexByte(s, '%')
		if i == -1 || i == len(s)-1 {
			b.WriteString(s)
			break
		}
		j := strings.IndexByte(s[i+1:], '%')
		if j == -1 {
			b.WriteString(s)
			break
		}
		name := s[i+1 : i+1+j]
		b.WriteString(s[:i])
		if v, ok := os.LookupEnv(name); ok && name != "" {
			b.WriteString(v)
		} else {
			b.WriteString("%")
			b.WriteString(name)
			b.WriteString("%")
		}
		s = s[i+j+2:]
	}
	return b.String()
}

// executable extensions recognized when splitting a command line
var pathExtensions = []string{".exe", ".dll", ".ocx", ".sys", ".cpl", ".scr"}

// ExtractCommandPath pulls the file path out of a command-line style
// registry value: quoted paths keep the quoted part, unquoted commands are
// cut after a known executable extension, and as a last resort the first
// space-separated token is returned when it names an existing path. The
// prober may be nil, which disables the existence heuristic.
func ExtractCommandPath(value string, p types.FileProber) (string, bool) {
	path := strings.Trim(value, " \t")
	if path == "" {
		return "", false
	}

	if path[0] == '"' {
		if end := strings.IndexByte(path[1:], '"'); end != -1 {
			return path[1 : end+1], true
		}
	}

	lower := strings.ToLower(path)
	for _, ext := range pathExtensions {
		if pos := strings.Index(lower, ext); pos != -1 {
			return path[:pos+len(ext)], true
		}
	}

	if space := strings.IndexByte(path, ' '); space != -1 {
		head := path[:space]
		if p != nil && p.PathExists(head) {
			return head, true
		}
	}
	return path, true
}
