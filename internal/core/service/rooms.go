package service

import "sort"

// roomTable maps room ids to member sets. Rooms are created lazily on
// first add and deleted when their last member leaves. Like the
// registry it is lock-free; the Matchmaker serializes access.
type roomTable struct {
	rooms map[string]map[string]struct{}
}

func newRoomTable() *roomTable {
	return &roomTable{rooms: make(map[string]map[string]struct{})}
}

func (t *roomTable) ensure(roomID string) map[string]struct{} {
	m, ok := t.rooms[roomID]
	if !ok {
		m = make(map[string]struct{})
		t.rooms[roomID] = m
	}
	return m
}

func (t *roomTable) add(roomID, userID string) {
	t.ensure(roomID)[userID] = struct{}{}
}

// remove deletes a member and reports whether the room itself was
// deleted because it became empty.
func (t *roomTable) remove(roomID, userID string) bool {
	m, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	delete(m, userID)
	if len(m) == 0 {
		delete(t.rooms, roomID)
		return true
	}
	return false
}

func (t *roomTable) contains(roomID, userID string) bool {
	_, ok := t.rooms[roomID][userID]
	return ok
}

func (t *roomTable) exists(roomID string) bool {
	_, ok := t.rooms[roomID]
	return ok
}

// members returns the member set in sorted order, empty when the room
// does not exist. Sorting keeps candidate selection deterministic.
func (t *roomTable) members(roomID string) []string {
	m := t.rooms[roomID]
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *roomTable) size() int {
	return len(t.rooms)
}
