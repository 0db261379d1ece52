package core

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Register adds a table definition to the registry.
// Panics if the definition is invalid or its key is already registered.
func Register(def TableDefinition) {
	if err := Validate(def); err != nil {
		panic(fmt.Sprintf("invalid table %q: %v", def.Info.Key, err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	registry[def.Info.Key] = def
}

// Validate checks the struct tags of def and that every input field is a
// column of its relation.
func Validate(def TableDefinition) error {
	if err := validate.Struct(def); err != nil {
		return errors.Wrap(err, "table definition")
	}
	for _, c := range def.Cells {
		if !slices.Contains(def.Relation.Columns, c.Name) {
			return errors.Newf("field %q is not a column of %s", c.Name, def.Relation.Name)
		}
	}
	for _, f := range def.Fixed {
		if !slices.Contains(def.Relation.Columns, f.Field) {
			return errors.Newf("fixed field %q is not a column of %s", f.Field, def.Relation.Name)
		}
	}
	return nil
}

// Get returns a table definition by key.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns every registered definition sorted by group, then key.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})
	return result
}

// Clear removes all registered tables. Used by tests.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}
