package router

import (
	"errors"
	"strings"
)

// Path errors.
var (
	ErrBackslashInPath = errors.New("router: path contains backslash")
	ErrNullByteInPath  = errors.New("router: path contains null byte")
	ErrPathEscapesRoot = errors.New("router: path escapes root via ..")
)

// Normalize prefixes "/" when path does not start with one. The rest of the
// path, including any query, is kept as given.
func Normalize(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// SplitPathAndQuery splits off the query and fragment. The query is returned
// without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	input, _, _ = strings.Cut(input, "#")
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// Canonicalize reduces a location to the form used for table lookups:
// query and fragment dropped, leading slash ensured, repeated slashes and
// "." segments collapsed, ".." resolved and the trailing slash removed.
// Backslashes, NUL bytes and ".." above the root are rejected.
func Canonicalize(input string) (string, error) {
	path, _ := SplitPathAndQuery(input)
	if path == "" {
		return "/", nil
	}
	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return "", ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	return "/" + strings.Join(segments, "/"), nil
}
