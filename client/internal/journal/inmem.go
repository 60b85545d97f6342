package journal

import (
	"context"
	"sync"
)

// InMemoryStore 是基于内存的审计日志实现。
// 客户端单会话场景下足够用；重启即丢，属预期行为。
type InMemoryStore struct {
	mu       sync.RWMutex
	entries  map[string][]Entry
	seq      map[string]int64
	eventIDs map[string]map[string]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries:  make(map[string][]Entry),
		seq:      make(map[string]int64),
		eventIDs: make(map[string]map[string]int64),
	}
}

// Append 追加一条记录并分配单调递增 seq。
// 副作用：相同 EventID 直接返回已分配的 seq（幂等）。
func (s *InMemoryStore) Append(_ context.Context, simulationID string, entry *Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.EventID != "" {
		if seen, ok := s.eventIDs[simulationID]; ok {
			if seq, exists := seen[entry.EventID]; exists {
				return seq, nil
			}
		}
	}

	s.seq[simulationID]++
	seq := s.seq[simulationID]

	entryCopy := *entry
	entryCopy.Seq = seq
	s.entries[simulationID] = append(s.entries[simulationID], entryCopy)

	if entry.EventID != "" {
		if s.eventIDs[simulationID] == nil {
			s.eventIDs[simulationID] = make(map[string]int64)
		}
		s.eventIDs[simulationID][entry.EventID] = seq
	}

	return seq, nil
}

// List 返回某个 simulation 的全部记录（按 seq 顺序的副本）。
func (s *InMemoryStore) List(_ context.Context, simulationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[simulationID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}
