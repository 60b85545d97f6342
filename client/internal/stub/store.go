package stub

import (
	"errors"
	"sync"

	"crisis-sim/client/internal/model"
)

var ErrNotFound = errors.New("simulation not found")

// Store 是桩后端的会话存储。
type Store interface {
	Get(id string) (*model.Simulation, error)
	Save(sim *model.Simulation) error
	Delete(id string) bool
}

// InMemoryStore 是基于内存的会话存储实现。
// 桩后端只为本地联调与集成测试服务，不需要持久化。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*model.Simulation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]*model.Simulation)}
}

// Get 返回快照的深拷贝，避免调用方与存储互相污染。
func (s *InMemoryStore) Get(id string) (*model.Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sim, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSimulation(sim), nil
}

func (s *InMemoryStore) Save(sim *model.Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sim.SimulationID] = cloneSimulation(sim)
	return nil
}

func (s *InMemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	return true
}

func cloneSimulation(sim *model.Simulation) *model.Simulation {
	out := *sim
	out.Turns = make([]model.Turn, len(sim.Turns))
	copy(out.Turns, sim.Turns)
	for i := range out.Turns {
		if sc := out.Turns[i].SelectedScenario; sc != nil {
			scCopy := *sc
			if sc.Grade != nil {
				grade := *sc.Grade
				scCopy.Grade = &grade
			}
			out.Turns[i].SelectedScenario = &scCopy
		}
		clips := make([]string, len(out.Turns[i].VideoURLs))
		copy(clips, out.Turns[i].VideoURLs)
		out.Turns[i].VideoURLs = clips
	}
	return &out
}
