package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var null = json.RawMessage("null")

// Snapshot is the value of a path at one point in time.
type Snapshot struct {
	Path string
	Raw  json.RawMessage
	Rev  int64 // highest revision among the leaves, 0 when missing
}

// Key returns the last path segment, "" for root.
func (s Snapshot) Key() string {
	return lastSegment(s.Path)
}

// Exists reports whether the path holds a value.
func (s Snapshot) Exists() bool {
	return len(s.Raw) > 0 && !bytes.Equal(s.Raw, null)
}

// Decode unmarshals the value into v. A missing value leaves v untouched.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return nil
	}
	return json.Unmarshal(s.Raw, v)
}

// Children returns one snapshot per direct child, sorted by key.
// Scalars and missing values have no children.
func (s Snapshot) Children() []Snapshot {
	if !s.Exists() || s.Raw[0] != '{' {
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(s.Raw, &obj); err != nil {
		return nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, Snapshot{Path: child(s.Path, k), Raw: obj[k], Rev: s.Rev})
	}
	return out
}

// Get reads the value at path.
func (d *DB) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := cleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	// substr rather than LIKE: LIKE is case-insensitive in SQLite.
	prefix := descendantPrefix(p)
	query := `SELECT path, value, rev FROM nodes WHERE path = ? OR substr(path, 1, ?) = ? ORDER BY path`
	rows, err := d.db.QueryContext(ctx, d.Rebind(query), p, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", p, err)
	}
	defer rows.Close()

	var leaves []leaf
	var maxRev int64
	for rows.Next() {
		var l leaf
		if err := rows.Scan(&l.path, &l.value, &l.rev); err != nil {
			return Snapshot{}, fmt.Errorf("get %s: scan: %w", p, err)
		}
		if l.rev > maxRev {
			maxRev = l.rev
		}
		leaves = append(leaves, l)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", p, err)
	}

	raw, err := assemble(p, leaves)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", p, err)
	}
	return Snapshot{Path: p, Raw: raw, Rev: maxRev}, nil
}

type leaf struct {
	path  string
	value string
	rev   int64
}

// assemble rebuilds the JSON value at base from its leaves.
func assemble(base string, leaves []leaf) (json.RawMessage, error) {
	if len(leaves) == 0 {
		return null, nil
	}
	if len(leaves) == 1 && leaves[0].path == base {
		return json.RawMessage(leaves[0].value), nil
	}

	prefix := descendantPrefix(base)
	root := make(map[string]any)
	for _, l := range leaves {
		rel := strings.TrimPrefix(l.path, prefix)
		segs := strings.Split(rel, "/")

		node := root
		for _, seg := range segs[:len(segs)-1] {
			next, ok := node[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[seg] = next
			}
			node = next
		}
		node[segs[len(segs)-1]] = json.RawMessage(l.value)
	}

	return json.Marshal(root)
}
