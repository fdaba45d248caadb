package repository

import (
	"context"
	"sync"

	"github.com/m2tx/margin_agent/internal/model"
)

const DefaultMemoryCapacity = 500

// MemoryTranscriptRepository keeps the most recent transcripts in process
// memory. The oldest transcript is evicted once capacity is reached.
type MemoryTranscriptRepository struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]model.Transcript
}

func NewMemoryTranscriptRepository(capacity int) *MemoryTranscriptRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryTranscriptRepository{
		capacity: capacity,
		items:    make(map[string]model.Transcript),
	}
}

func (r *MemoryTranscriptRepository) Save(_ context.Context, transcript *model.Transcript) error {
	if transcript == nil || transcript.SessionID == "" {
		return errEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[transcript.SessionID]; !exists {
		r.order = append(r.order, transcript.SessionID)
	}
	r.items[transcript.SessionID] = *transcript

	for len(r.order) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.items, oldest)
	}
	return nil
}

func (r *MemoryTranscriptRepository) Load(_ context.Context, sessionID string) (*model.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[sessionID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *MemoryTranscriptRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[sessionID]; !ok {
		return nil
	}
	delete(r.items, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports how many transcripts are held.
func (r *MemoryTranscriptRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
