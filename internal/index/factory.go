package index

import (
	"fmt"
	"path/filepath"
)

// Mode selects the secondary-index backend.
type Mode string

const (
	// ModeAuto uses clink when installed, the embedded sqlite backend
	// otherwise.
	ModeAuto   Mode = "auto"
	ModeClink  Mode = "clink"
	ModeSQLite Mode = "sqlite"
	ModeOff    Mode = "off"
)

// File names of index backing stores inside the base directory.
const (
	ClinkDBFile  = "executions.links"
	SQLiteDBFile = "executions.db"
)

// New builds the index for the given mode inside baseDir. ModeOff returns
// (nil, nil); callers treat a nil Index as "feature disabled".
func New(mode Mode, baseDir string) (Index, error) {
	switch mode {
	case ModeOff:
		return nil, nil
	case ModeClink:
		return NewClink(filepath.Join(baseDir, ClinkDBFile)), nil
	case ModeSQLite:
		return NewSQLite(filepath.Join(baseDir, SQLiteDBFile))
	case ModeAuto, "":
		c := NewClink(filepath.Join(baseDir, ClinkDBFile))
		if c.Available() {
			return c, nil
		}
		return NewSQLite(filepath.Join(baseDir, SQLiteDBFile))
	default:
		return nil, fmt.Errorf("index: unknown mode %q", mode)
	}
}
