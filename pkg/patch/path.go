package patch

import "strings"

// devNull is the conventional "file is absent" marker in diff headers.
const devNull = "/dev/null"

// stripComponents removes count leading path components. Adjacent slashes
// count as one separator and a leading slash strips on its own, so -p1
// turns "a//f.c" into "f.c" and "/u/src/f.c" into "u/src/f.c". When the
// path has fewer components than requested, the basename remains, which
// mirrors the traditional default of patching by basename.
func stripComponents(path string, count int) string {
	rest := path
	for n := 0; n < count; n++ {
		i := strings.IndexByte(rest, '/')
		if i < 0 {
			return rest
		}
		for i < len(rest) && rest[i] == '/' {
			i++
		}
		rest = rest[i:]
	}
	if rest == "" {
		return basename(path)
	}
	return rest
}

func basename(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

func componentCount(path string) int {
	n := 0
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			n++
		}
	}
	return n
}

// stripPath applies the strip policy to one header path. Strip -1 probes the
// filesystem for the smallest count that names an existing file and falls
// back to the basename, the historic behavior when no -p is given. /dev/null
// and empty paths pass through untouched.
func stripPath(path string, strip int, fsys FileSystem) string {
	if path == "" || path == devNull {
		return path
	}
	if strip >= 0 {
		return stripComponents(path, strip)
	}
	max := componentCount(path)
	if fsys != nil {
		for n := 0; n < max; n++ {
			candidate := stripComponents(path, n)
			if fileExists(fsys, candidate) {
				return candidate
			}
		}
	}
	return basename(path)
}

// bestTargetPath picks the file to edit from the candidate names a header
// offers, in the order they should win ties. Names that exist beat names
// that do not; after that fewer path components win, then the shorter
// basename, then the shorter name.
func bestTargetPath(candidates []string, fsys FileSystem) string {
	pool := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c == "" || c == devNull || seen[c] {
			continue
		}
		seen[c] = true
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		return ""
	}
	existing := make([]string, 0, len(pool))
	for _, c := range pool {
		if fileExists(fsys, c) {
			existing = append(existing, c)
		}
	}
	if len(existing) > 0 {
		pool = existing
	}
	best := pool[0]
	for _, c := range pool[1:] {
		if pathBetter(c, best) {
			best = c
		}
	}
	return best
}

func pathBetter(a, b string) bool {
	if ca, cb := componentCount(a), componentCount(b); ca != cb {
		return ca < cb
	}
	if la, lb := len(basename(a)), len(basename(b)); la != lb {
		return la < lb
	}
	return len(a) < len(b)
}

func fileExists(fsys FileSystem, path string) bool {
	if fsys == nil || path == "" {
		return false
	}
	_, err := fsys.Stat(path)
	return err == nil
}
