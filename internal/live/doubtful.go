package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DoubtfulStore keeps a participant's "not sure" marks. They never reach the
// server.
type DoubtfulStore interface {
	Load(key string) (map[uint]bool, error)
	Save(key string, flags map[uint]bool) error
}

func DoubtfulKey(sessionID, participantID uint) string {
	return fmt.Sprintf("%d:%d", sessionID, participantID)
}

type MemoryDoubtfulStore struct {
	mu    sync.Mutex
	flags map[string]map[uint]bool
}

func NewMemoryDoubtfulStore() *MemoryDoubtfulStore {
	return &MemoryDoubtfulStore{flags: make(map[string]map[uint]bool)}
}

func (s *MemoryDoubtfulStore) Load(key string) (map[uint]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFlags(s.flags[key]), nil
}

func (s *MemoryDoubtfulStore) Save(key string, flags map[uint]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = copyFlags(flags)
	return nil
}

// FileDoubtfulStore writes one JSON file per session and participant.
type FileDoubtfulStore struct {
	dir string
}

func NewFileDoubtfulStore(dir string) *FileDoubtfulStore {
	return &FileDoubtfulStore{dir: dir}
}

func (s *FileDoubtfulStore) path(key string) string {
	name := strings.ReplaceAll(filepath.Base(key), ":", "-")
	return filepath.Join(s.dir, "session-"+name+".json")
}

func (s *FileDoubtfulStore) Load(key string) (map[uint]bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return map[uint]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode doubtful flags %s: %w", key, err)
	}
	flags := make(map[uint]bool, len(ids))
	for _, id := range ids {
		flags[id] = true
	}
	return flags, nil
}

func (s *FileDoubtfulStore) Save(key string, flags map[uint]bool) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	ids := make([]uint, 0, len(flags))
	for id, on := range flags {
		if on {
			ids = append(ids, id)
		}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

func copyFlags(in map[uint]bool) map[uint]bool {
	out := make(map[uint]bool, len(in))
	for id, on := range in {
		if on {
			out[id] = true
		}
	}
	return out
}
