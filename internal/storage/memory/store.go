// Package memory implements the storage interfaces with in-memory maps.
package memory

import (
	"errors"
	"sync"

	"github.com/AltairaLabs/portalops/internal/types"
)

var (
	errTaskNil       = errors.New("task cannot be nil")
	errSessionNil    = errors.New("session cannot be nil")
	errCaseNil       = errors.New("case cannot be nil")
	errAttachmentNil = errors.New("attachment cannot be nil")
	errIDEmpty       = errors.New("ID cannot be empty")
)

// Store implements storage.Backend using in-memory maps
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]*types.Task
	cases       map[string]*types.Case
	attachments map[string][]*types.Attachment // taskID -> attachments
	sessions    map[string]*storedSession
	byTask      map[string][]string // taskID -> sessionIDs, insertion order
	seq         uint64
}

// storedSession remembers insertion order to break CreatedAt ties.
type storedSession struct {
	session types.Session
	seq     uint64
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		tasks:       make(map[string]*types.Task),
		cases:       make(map[string]*types.Case),
		attachments: make(map[string][]*types.Attachment),
		sessions:    make(map[string]*storedSession),
		byTask:      make(map[string][]string),
	}
}

// Close is a no-op; it satisfies storage.Backend.
func (s *Store) Close() error {
	return nil
}
