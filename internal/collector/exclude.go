package collector

import (
	"path"
	"strings"
)

// isExcluded reports whether relPath (forward-slash separated, relative
// to the input root) matches any of the configured exclusion patterns.
// Patterns are tried, in order, against: the whole relative path; the
// path with a trailing "/" appended when it names a directory (so
// "build/" matches directory patterns); and the final path segment
// alone, so a bare-name pattern such as "*.log" matches at any depth.
// "**" crossing directory boundaries is handled by matchGlob. The
// first match wins; order of exclusion does not affect
// which files end up excluded (spec §3.1 invariant).
func isExcluded(patterns []string, relPath string, isDir bool) bool {
	candidate := relPath
	dirCandidate := relPath
	if isDir {
		dirCandidate = relPath + "/"
	}

	for _, pattern := range patterns {
		if matchGlob(pattern, candidate) {
			return true
		}
		if isDir && matchGlob(pattern, dirCandidate) {
			return true
		}
		if matchGlob(pattern, path.Base(relPath)) {
			return true
		}
	}
	return false
}

// matchGlob matches pattern against relPath using shell glob semantics
// where "*" and "?" do not cross "/" boundaries, and "**" matches any
// number of path segments including zero. Both operands are already
// forward-slash-normalized relative paths (spec §3.2), never OS paths,
// so this always uses "path".Match rather than "path/filepath".Match —
// the latter treats "\" as the separator on a Windows build host,
// which would make manifest inclusion depend on the build platform.
func matchGlob(pattern, relPath string) bool {
	if !strings.Contains(pattern, "**") {
		ok, err := path.Match(pattern, relPath)
		return err == nil && ok
	}
	return matchDoubleStar(strings.Split(pattern, "/"), strings.Split(relPath, "/"))
}

func matchDoubleStar(patternParts, pathParts []string) bool {
	if len(patternParts) == 0 {
		return len(pathParts) == 0
	}

	head := patternParts[0]
	if head == "**" {
		if matchDoubleStar(patternParts[1:], pathParts) {
			return true
		}
		if len(pathParts) == 0 {
			return false
		}
		return matchDoubleStar(patternParts, pathParts[1:])
	}

	if len(pathParts) == 0 {
		return false
	}
	ok, err := path.Match(head, pathParts[0])
	if err != nil || !ok {
		return false
	}
	return matchDoubleStar(patternParts[1:], pathParts[1:])
}
