// Package remap translates identifiers from a foreign document to the ids of
// the local rows they were matched with or created as.
package remap

// Table holds the category and tag translations for one ingestion run.
// Foreign ids and cleaned names are kept apart; a lookup tries the id first
// and falls back to the name. A Table is not safe for concurrent use and is
// thrown away when the run ends.
type Table struct {
	categories keys
	tags       keys
}

type keys struct {
	byID   map[string]string
	byName map[string]string
}

func newKeys() keys {
	return keys{byID: make(map[string]string), byName: make(map[string]string)}
}

func (k keys) bind(foreignID *string, name, localID string) {
	if foreignID != nil && *foreignID != "" {
		k.byID[*foreignID] = localID
	}
	if name != "" {
		k.byName[name] = localID
	}
}

func (k keys) lookup(key string) (string, bool) {
	if id, ok := k.byID[key]; ok {
		return id, true
	}
	id, ok := k.byName[key]
	return id, ok
}

// New returns an empty table.
func New() *Table {
	return &Table{categories: newKeys(), tags: newKeys()}
}

// BindCategory maps the foreign id (if any) and name to localID.
func (t *Table) BindCategory(foreignID *string, name, localID string) {
	t.categories.bind(foreignID, name, localID)
}

// BindTag maps the foreign id (if any) and name to localID.
func (t *Table) BindTag(foreignID *string, name, localID string) {
	t.tags.bind(foreignID, name, localID)
}

// Category resolves a foreign category reference.
func (t *Table) Category(key string) (string, bool) {
	return t.categories.lookup(key)
}

// Tag resolves a foreign tag reference.
func (t *Table) Tag(key string) (string, bool) {
	return t.tags.lookup(key)
}

// CategoryRef resolves an optional reference; a missing reference or a miss
// yields nil so the caller never stores a dangling id.
func (t *Table) CategoryRef(key *string) *string {
	if key == nil {
		return nil
	}
	if id, ok := t.categories.lookup(*key); ok {
		return &id
	}
	return nil
}
