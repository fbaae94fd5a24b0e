// Package audit provides an append-only, tamper-evident journal of
// authorization and filter decisions. Each line's prev_hash is the SHA-256
// of the previous JSON line, forming a verifiable chain.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash of the first entry in a new log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log is an append-only JSONL audit log with SHA-256 hash chaining.
type Log struct {
	path     string
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// Open opens (or creates) an audit log for appending. If the file already
// exists the last line is read back to recover the chain tail.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		tail, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(tail) > 0 {
			prevHash = HashLine(tail)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{path: path, file: file, prevHash: prevHash}, nil
}

// Record appends an Entry with hash chaining. The entry's PrevHash and
// Timestamp (if empty) are filled in, the line is written and synced.
func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns the chain hash of one JSON line.
func HashLine(line []byte) string {
	sum := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// VerifyResult reports the outcome of a chain verification pass.
type VerifyResult struct {
	Valid     bool
	Lines     int
	ErrorLine int
	Error     string
}

// Verify re-reads a log file and checks the hash chain end to end.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	expected := GenesisHash
	lineNo := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return VerifyResult{Lines: lineNo, ErrorLine: lineNo, Error: fmt.Sprintf("invalid JSON: %v", err)}
		}
		if entry.PrevHash != expected {
			return VerifyResult{Lines: lineNo, ErrorLine: lineNo, Error: "hash chain broken"}
		}
		expected = HashLine(append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{Lines: lineNo, Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: lineNo}
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	var last []byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}
