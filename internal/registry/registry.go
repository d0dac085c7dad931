package registry

import (
	"sort"
	"sync"

	"socketDraw/internal/models"
)

// roomState tracks the live membership and cursor positions of one room.
// Created on first join and kept resident even when the last participant
// leaves, matching how room lifetime works for the rest of the process.
type roomState struct {
	participants map[string]bool
	cursors      map[string]models.CursorInfo
}

func newRoomState() *roomState {
	return &roomState{
		participants: make(map[string]bool),
		cursors:      make(map[string]models.CursorInfo),
	}
}

// RoomRegistry is the single source of truth for who is in a room and where
// their cursors are. Constructed once at process start and shared by handle.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*roomState),
	}
}

// Ensure idempotently creates the state for a room.
func (r *RoomRegistry) Ensure(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(roomID)
}

func (r *RoomRegistry) ensureLocked(roomID string) *roomState {
	state, ok := r.rooms[roomID]
	if !ok {
		state = newRoomState()
		r.rooms[roomID] = state
	}
	return state
}

func (r *RoomRegistry) AddParticipant(roomID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.ensureLocked(roomID)
	state.participants[connectionID] = true
}

// RemoveParticipant drops the connection and any cursor entry it had.
// An empty room stays resident rather than being deleted.
func (r *RoomRegistry) RemoveParticipant(roomID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(state.participants, connectionID)
	delete(state.cursors, connectionID)
}

// SetCursor upserts the cursor of a current participant. A late update for a
// connection that already left is silently ignored, not an error.
func (r *RoomRegistry) SetCursor(roomID, connectionID string, cursor models.CursorInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if !state.participants[connectionID] {
		return
	}
	state.cursors[connectionID] = cursor
}

func (r *RoomRegistry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(state.participants)
}

// Cursors returns a snapshot of the room's cursor set, ordered by connection
// id so peers receive a deterministic sequence.
func (r *RoomRegistry) Cursors(roomID string) []models.CursorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.rooms[roomID]
	if !ok {
		return []models.CursorInfo{}
	}
	cursors := make([]models.CursorInfo, 0, len(state.cursors))
	for _, cursor := range state.cursors {
		cursors = append(cursors, cursor)
	}
	sort.Slice(cursors, func(i, j int) bool { return cursors[i].ID < cursors[j].ID })
	return cursors
}

// RoomCount reports how many rooms have state resident, empty ones included.
func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
