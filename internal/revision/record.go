package revision

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/openmined/simlog/internal/kvfile"
)

const (
	// FileName is the revision record kept at the root of a working directory.
	FileName = "REV"

	// RootParent is the parent of the first revision of a collection.
	RootParent = "*"

	keyID     = "id"
	keyParent = "parent_id"
)

// Record is the persisted identity of a working directory snapshot.
type Record struct {
	ID       string
	ParentID string
	Files    map[string]string
}

// ID joins a collection and a combined hash into a revision id.
func ID(collection, combined string) string {
	return collection + ":" + combined
}

// CollectionOf returns the collection prefix of a revision id.
func CollectionOf(id string) string {
	collection, _, _ := strings.Cut(id, ":")
	return collection
}

func (r *Record) Collection() string {
	return CollectionOf(r.ID)
}

func (r *Record) IsRoot() bool {
	return r.ParentID == RootParent
}

// Marshal renders the record with id first, parent_id second and files sorted by path.
func (r *Record) Marshal() []byte {
	pairs := make([]kvfile.Pair, 0, len(r.Files)+2)
	pairs = append(pairs,
		kvfile.Pair{Key: keyID, Value: r.ID},
		kvfile.Pair{Key: keyParent, Value: r.ParentID},
	)
	for _, path := range sortedKeys(r.Files) {
		pairs = append(pairs, kvfile.Pair{Key: path, Value: r.Files[path]})
	}
	return kvfile.Format(pairs)
}

// ParseRecord reads a record. Both id and parent_id must be present.
func ParseRecord(data []byte) (*Record, error) {
	pairs, err := kvfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	rec := &Record{Files: make(map[string]string, len(pairs))}
	var hasID, hasParent bool
	for _, p := range pairs {
		switch p.Key {
		case keyID:
			rec.ID, hasID = p.Value, true
		case keyParent:
			rec.ParentID, hasParent = p.Value, true
		default:
			rec.Files[p.Key] = p.Value
		}
	}

	if !hasID || rec.ID == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedRecord, keyID)
	}
	if !hasParent || rec.ParentID == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedRecord, keyParent)
	}
	return rec, nil
}

// Changed lists the paths whose hash in r differs from or is absent in parent.
func (r *Record) Changed(parent map[string]string) []string {
	var changed []string
	for _, path := range sortedKeys(r.Files) {
		if old, ok := parent[path]; !ok || old != r.Files[path] {
			changed = append(changed, path)
		}
	}
	return changed
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
