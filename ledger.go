package soupnight

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrInvalidRSVP is returned when a submission cannot be normalized
// into a ledger entry. The caller responds with a client error and
// nothing is appended.
var ErrInvalidRSVP = errors.New("invalid rsvp submission")

// Ledger is an append-only collection of RSVP entries persisted as a
// single pretty-printed JSON array on disk. The document always parses
// as an array, defaulting to empty. Appends are read-modify-write
// cycles serialized by a mutex so concurrent submissions cannot lose
// each other's entries.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// NewLedger ensures the data directory and the ledger file exist,
// seeding a fresh file with an empty array.
func NewLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("seed ledger file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat ledger file: %w", err)
	}
	return &Ledger{path: path}, nil
}

// NewEntry normalizes a submission into a ledger entry. The name is
// trimmed and must be non-empty; the guest count must be at least 1.
func NewEntry(name string, guests int) (RSVP, error) {
	name = strings.TrimSpace(name)
	if name == "" || guests < 1 {
		return RSVP{}, ErrInvalidRSVP
	}
	return RSVP{
		Name:        name,
		Guests:      guests,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// List returns every entry in submission order.
func (l *Ledger) List() ([]RSVP, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Append adds an entry to the ledger and returns the updated roster.
// The full array is read, extended, and written back under the lock;
// the entry is considered durable once Append returns.
func (l *Ledger) Append(entry RSVP) ([]RSVP, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write ledger: %w", err)
	}
	return entries, nil
}

func (l *Ledger) read() ([]RSVP, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return []RSVP{}, nil
	}
	var entries []RSVP
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if entries == nil {
		entries = []RSVP{}
	}
	return entries, nil
}
