// Package sandbox provides secure execution containers for untrusted,
// automation-driven callers. A container exposes a fixed allow-list of
// read-only operations over an in-memory snapshot of a real directory; it
// never spawns processes, mounts filesystems, or opens sockets on behalf of
// its owner.
package sandbox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Operations on the allow-list. Anything else is rejected.
const (
	OpReadLog      = "read-log"
	OpShowRevision = "show-revision"
	OpListLog      = "list-log"
)

// revlogName is the revision journal convention inside a container root:
// one JSON revision per line.
const revlogName = ".revlog.jsonl"

// Revision is one entry of a container's revision journal.
type Revision struct {
	ID      string            `json:"id"`
	Subject string            `json:"subject"`
	Files   map[string]string `json:"files,omitempty"`
}

// Container is one sandbox session. All state is an immutable snapshot
// taken at creation; operations are pure lookups.
type Container struct {
	id        string
	owner     string
	root      string
	createdAt time.Time
	files     map[string][]byte
	revisions []Revision
	closed    bool
}

// ID returns the container's opaque identifier.
func (c *Container) ID() string { return c.id }

// Owner returns the logical session owner the container was created for.
func (c *Container) Owner() string { return c.owner }

// snapshot loads the container's virtual state from the real root: regular
// files directly under root, plus the revision journal if present.
func (c *Container) snapshot() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", c.root, err)
	}

	c.files = make(map[string][]byte)
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.root, entry.Name()))
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", entry.Name(), err)
		}
		c.files[entry.Name()] = data
	}

	return c.loadRevlog()
}

func (c *Container) loadRevlog() error {
	f, err := os.Open(filepath.Join(c.root, revlogName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no journal, empty log
		}
		return fmt.Errorf("open revision journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rev Revision
		if err := json.Unmarshal([]byte(line), &rev); err != nil {
			return fmt.Errorf("revision journal line %d: %w", lineNo, err)
		}
		c.revisions = append(c.revisions, rev)
	}
	return scanner.Err()
}

// listLog returns one line per revision: id and subject.
func (c *Container) listLog() string {
	var b strings.Builder
	for _, rev := range c.revisions {
		fmt.Fprintf(&b, "%s %s\n", rev.ID, rev.Subject)
	}
	return b.String()
}

// readLog returns the full formatted journal.
func (c *Container) readLog() string {
	var b strings.Builder
	for _, rev := range c.revisions {
		fmt.Fprintf(&b, "revision %s\n%s\n\n", rev.ID, rev.Subject)
	}
	return b.String()
}

// showRevision returns one revision with its recorded file contents. The
// target may be a revision id prefix or "HEAD" for the newest entry.
func (c *Container) showRevision(target string) (string, error) {
	if len(c.revisions) == 0 {
		return "", &RevisionNotFoundError{Revision: target}
	}

	var rev *Revision
	if target == "" || target == "HEAD" {
		rev = &c.revisions[len(c.revisions)-1]
	} else {
		for i := range c.revisions {
			if strings.HasPrefix(c.revisions[i].ID, target) {
				rev = &c.revisions[i]
				break
			}
		}
	}
	if rev == nil {
		return "", &RevisionNotFoundError{Revision: target}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "revision %s\n%s\n\n", rev.ID, rev.Subject)

	names := make([]string, 0, len(rev.Files))
	for name := range rev.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "--- %s\n%s\n", name, rev.Files[name])
	}
	return b.String(), nil
}
