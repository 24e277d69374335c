package index

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"cmdtrack/internal/lino"
	"cmdtrack/internal/record"
)

// uuidPattern extracts record uuids from clink query output.
var uuidPattern = regexp.MustCompile(`ExecutionRecord\s+([a-f0-9-]{36})`)

// Clink shells out to the external `clink` indexing tool. The query
// language is opaque to this package: we only build create/delete queries
// and count uuids in the output, never parse the database file itself.
type Clink struct {
	DBPath string

	bin       string
	probeOnce sync.Once
	installed bool
}

// NewClink returns a clink-backed index writing to dbPath.
func NewClink(dbPath string) *Clink {
	return &Clink{DBPath: dbPath, bin: "clink"}
}

// Available probes the clink binary once via `clink --version`.
func (c *Clink) Available() bool {
	c.probeOnce.Do(func() {
		cmd := exec.Command(c.bin, "--version")
		c.installed = cmd.Run() == nil
	})
	return c.installed
}

func (c *Clink) Describe() string { return "clink:" + c.DBPath }

func (c *Clink) Save(rec *record.Record) error {
	if !c.Available() {
		return fmt.Errorf("index: clink not installed")
	}
	return c.exec(buildCreateQuery(rec))
}

func (c *Clink) Delete(uuid string) error {
	if !c.Available() {
		return fmt.Errorf("index: clink not installed")
	}
	return c.exec(fmt.Sprintf("(($id: %s $any)) ()", uuid))
}

func (c *Clink) Count() (int, error) {
	if !c.Available() {
		return 0, fmt.Errorf("index: clink not installed")
	}
	out, err := c.output("((($id: ExecutionRecord $uuid)) (($id: ExecutionRecord $uuid)))")
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{})
	for _, m := range uuidPattern.FindAllStringSubmatch(out, -1) {
		seen[strings.ToLower(m[1])] = struct{}{}
	}
	return len(seen), nil
}

func (c *Clink) Drop() error {
	return removeIfExists(c.DBPath)
}

func (c *Clink) Close() error { return nil }

func (c *Clink) exec(query string) error {
	_, err := c.output(query)
	return err
}

func (c *Clink) output(query string) (string, error) {
	// #nosec G204 -- query is built locally, never from user input
	cmd := exec.Command(c.bin, query, "--db", c.DBPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("index: clink query failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// buildCreateQuery produces one link naming the record plus one link per
// property, so lookups by uuid or by field both hit the index.
func buildCreateQuery(rec *record.Record) string {
	links := []string{
		fmt.Sprintf("(%s: ExecutionRecord %s)", rec.UUID, rec.UUID),
	}
	obj := rec.ToValue()
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)
		links = append(links, fmt.Sprintf("(%s.%s: %s %s)",
			rec.UUID, key, key, quoteValue(v)))
	}
	return fmt.Sprintf("() ((%s))", strings.Join(links, ") ("))
}

func quoteValue(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "null"
	case string:
		s = val
	case *lino.Object, []any:
		// Nested values go in as their notation text.
		s, _ = lino.Encode(val)
	default:
		s = fmt.Sprint(val)
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
