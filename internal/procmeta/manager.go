package procmeta

import (
	"fmt"
	"sort"
	"sync"
)

// Table is the global process table keyed by PID.
type Table struct {
	mu      sync.RWMutex
	records map[int]*Record // PID -> record
}

// NewTable creates an empty process table.
func NewTable() *Table {
	return &Table{
		records: make(map[int]*Record),
	}
}

// Get retrieves the record for a PID (query).
// Returns nil if the PID is unknown.
func (t *Table) Get(pid int) *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[pid]
}

// Len returns the number of records (query).
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// PIDs returns all PIDs in ascending order (query).
func (t *Table) PIDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pids := make([]int, 0, len(t.records))
	for pid := range t.records {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Put inserts a scanned record (command).
// Each PID is written by exactly one scanner; a second Put for the same PID
// is rejected.
func (t *Table) Put(record *Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[record.PID]; exists {
		return fmt.Errorf("pid %d already scanned", record.PID)
	}
	t.records[record.PID] = record
	return nil
}

// GetOrCreate retrieves the record for a PID, creating an empty one without
// a log if it doesn't exist (command).
func (t *Table) GetOrCreate(pid int) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.records[pid] == nil {
		t.records[pid] = &Record{PID: pid}
	}
	return t.records[pid]
}
