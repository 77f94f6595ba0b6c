package realtime

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for paths that are not absolute or contain a
// forbidden character.
var ErrInvalidPath = errors.New("realtime: invalid path")

// forbidden cannot appear in a key.
const forbidden = ".#$[]"

// Join builds a path from segments: Join("users", uid, "employees").
func Join(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// cleanPath validates p and strips a trailing slash.
func cleanPath(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q must start with /", ErrInvalidPath, p)
	}
	if p == "/" {
		return p, nil
	}
	p = strings.TrimSuffix(p, "/")
	for _, seg := range strings.Split(p[1:], "/") {
		if err := validateKey(seg); err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, p, err)
		}
	}
	return p, nil
}

func validateKey(k string) error {
	if k == "" {
		return errors.New("empty segment")
	}
	if strings.ContainsAny(k, forbidden+"/") {
		return fmt.Errorf("key %q contains one of %q", k, forbidden+"/")
	}
	return nil
}

// child appends key to p.
func child(p, key string) string {
	if p == "/" {
		return "/" + key
	}
	return p + "/" + key
}

// lastSegment returns the key of p, "" for root.
func lastSegment(p string) string {
	if p == "/" {
		return ""
	}
	return p[strings.LastIndexByte(p, '/')+1:]
}

// ancestors returns the proper ancestors of p, excluding root.
func ancestors(p string) []string {
	if p == "/" {
		return nil
	}
	var out []string
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[:i])
		}
	}
	return out
}

// descendantPrefix is the prefix every strict descendant of p starts with.
func descendantPrefix(p string) string {
	if p == "/" {
		return "/"
	}
	return p + "/"
}

// related reports whether a write at changed can alter the value at watched.
func related(watched, changed string) bool {
	if watched == changed || watched == "/" || changed == "/" {
		return true
	}
	return strings.HasPrefix(changed, watched+"/") || strings.HasPrefix(watched, changed+"/")
}
