// Package bbsconfig loads the narrow slice of BBS-wide configuration the PPL
// runtime and session loop actually need: board identity, node count, the
// default page length, and on-disk data paths. The full
// menu/conference/user/security-level schema a real IcyBoard installation
// carries is out of scope here — bbsconfig exposes only what
// internal/bbssession and internal/ppl consume, as a narrow collaborator
// interface rather than the whole configuration surface.
package bbsconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings keeps TOML keys identical to the Go struct field names,
// matching the teacher's cmd/gprobe NormFieldName/FieldToKey convention.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Board holds icyboard.toml's top-level settings.
type Board struct {
	Name        string `toml:",omitempty"`
	Location    string `toml:",omitempty"`
	SysopName   string `toml:",omitempty"`
	NumNodes    int
	PageLength  int
	DataPath    string
	PPEPath     string
	MaxCallTime int // minutes, 0 = unlimited
}

// Defaults mirrors the teacher's probeconfig.Defaults idiom: a ready-to-run
// configuration a fresh install can start from without a TOML file present.
var Defaults = Board{
	Name:        "IcyBoard",
	NumNodes:    4,
	PageLength:  23,
	DataPath:    "data",
	PPEPath:     "ppe",
	MaxCallTime: 60,
}

// Load reads file as TOML into a Board seeded with Defaults. A missing file
// is not an error — the caller gets Defaults back unmodified.
func Load(file string) (Board, error) {
	cfg := Defaults
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return cfg, fmt.Errorf("%s: %w", file, err)
		}
		return cfg, err
	}
	return cfg, nil
}

// ImportedTree describes the on-disk layout icbsetup's legacy-PCBoard
// importer would produce (icyboard.toml, config/*.toml,
// conferences/<n>/*.toml). SPEC_FULL.md scopes the importer itself out; this
// type exists so a future importer has a read-only contract to write
// against, and so internal/bbsconfig can validate a tree it did not create.
type ImportedTree struct {
	Root          string
	BoardFile     string
	ConfigDir     string
	ConferenceDir string
}

// NewImportedTree resolves the conventional file layout under root without
// touching the filesystem.
func NewImportedTree(root string) ImportedTree {
	return ImportedTree{
		Root:          root,
		BoardFile:     filepath.Join(root, "icyboard.toml"),
		ConfigDir:     filepath.Join(root, "config"),
		ConferenceDir: filepath.Join(root, "conferences"),
	}
}

// LoadBoard loads the tree's top-level icyboard.toml.
func (t ImportedTree) LoadBoard() (Board, error) {
	return Load(t.BoardFile)
}

// Dump renders cfg as TOML, the same shape Load consumes — used by
// cmd/icyboard's "dumpconfig" command, mirroring the teacher's
// cmd/gprobe dumpConfig (tomlSettings.Marshal then write to stdout or a
// named file).
func Dump(cfg Board) ([]byte, error) {
	return tomlSettings.Marshal(&cfg)
}
