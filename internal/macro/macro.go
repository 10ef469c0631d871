// Package macro loads named, reusable dice formulas from YAML files.
package macro

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicebot/internal/dice"
)

var validName = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Macro is a named formula, e.g. "attack" for "1d20+5 Attack".
type Macro struct {
	Name        string `yaml:"name"`
	Formula     string `yaml:"formula"`
	Description string `yaml:"description"`
}

type file struct {
	Macros []Macro `yaml:"macros"`
}

// Library indexes Macros by lower-cased name.
//
// Invariant: every stored Formula parses.
type Library struct {
	macros map[string]Macro
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{macros: make(map[string]Macro)}
}

// Add validates m and stores it under its lower-cased name.
//
// Postcondition: returns an error on an invalid name, an unparseable formula,
// or a name collision.
func (l *Library) Add(m Macro) error {
	m.Name = strings.ToLower(strings.TrimSpace(m.Name))
	if !validName.MatchString(m.Name) {
		return fmt.Errorf("macro name %q must match %s", m.Name, validName)
	}
	if _, exists := l.macros[m.Name]; exists {
		return fmt.Errorf("macro %q already defined", m.Name)
	}
	if strings.TrimSpace(m.Formula) == "" {
		return fmt.Errorf("macro %q: formula must not be empty", m.Name)
	}
	if _, err := dice.Parse(m.Formula); err != nil {
		return fmt.Errorf("macro %q: %w", m.Name, err)
	}
	l.macros[m.Name] = m
	return nil
}

// Get returns the Macro named name (case-insensitive), or false if absent.
func (l *Library) Get(name string) (Macro, bool) {
	m, ok := l.macros[strings.ToLower(name)]
	return m, ok
}

// All returns every Macro sorted by name.
func (l *Library) All() []Macro {
	out := make([]Macro, 0, len(l.macros))
	for _, m := range l.macros {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of macros.
func (l *Library) Len() int { return len(l.macros) }

// LoadDir reads every *.yaml and *.yml file in dir into a Library.
//
// Precondition: dir is empty or a readable directory.
// Postcondition: an empty dir yields an empty Library; otherwise returns a
// populated Library or an error naming the offending file.
func LoadDir(dir string) (*Library, error) {
	lib := NewLibrary()
	if dir == "" {
		return lib, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading macro dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := lib.loadFile(path); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *Library) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %q: %w", path, err)
	}
	for _, m := range f.Macros {
		if err := l.Add(m); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}
