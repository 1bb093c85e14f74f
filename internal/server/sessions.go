package server

import (
	"sync"
	"time"
)

// session is what a connection is bound to after a successful join.
type session struct {
	roomCode string
	playerID string
}

// sessionStore maps live connections to rooms and fans messages out per
// room. Delivery happens under mu so a heartbeat can never slip in behind a
// full state broadcast it should have been suppressed by, and a snapshot
// can never overtake a newer one.
type sessionStore struct {
	mu       sync.Mutex
	clients  map[*client]session
	rooms    map[string]map[*client]struct{}
	lastFull map[string]time.Time
	versions map[string]uint64
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		clients:  make(map[*client]session),
		rooms:    make(map[string]map[*client]struct{}),
		lastFull: make(map[string]time.Time),
		versions: make(map[string]uint64),
	}
}

func (s *sessionStore) add(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = session{}
}

// bind attaches c to a room and player and returns the previous binding.
func (s *sessionStore) bind(c *client, roomCode, playerID string) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.clients[c]
	s.detachLocked(c, previous)
	s.clients[c] = session{roomCode: roomCode, playerID: playerID}
	group := s.rooms[roomCode]
	if group == nil {
		group = make(map[*client]struct{})
		s.rooms[roomCode] = group
	}
	group[c] = struct{}{}
	return previous
}

func (s *sessionStore) lookup(c *client) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.clients[c]
	return sess, ok && sess.roomCode != ""
}

// remove forgets c and returns what it was bound to.
func (s *sessionStore) remove(c *client) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.clients[c]
	s.detachLocked(c, sess)
	delete(s.clients, c)
	return sess
}

func (s *sessionStore) detachLocked(c *client, sess session) {
	if sess.roomCode == "" {
		return
	}
	group := s.rooms[sess.roomCode]
	if group == nil {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(s.rooms, sess.roomCode)
		delete(s.lastFull, sess.roomCode)
		delete(s.versions, sess.roomCode)
	}
}

// deliverFull sends a full state message to every connection in the room
// and records when it happened. A message whose snapshot version is not
// newer than the last one delivered to the room is dropped; it returns -1
// in that case.
func (s *sessionStore) deliverFull(roomCode string, version uint64, data []byte, at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.rooms[roomCode]
	if len(group) == 0 {
		return 0
	}
	if version <= s.versions[roomCode] {
		staleSnapshotsDropped.Inc()
		return -1
	}
	s.versions[roomCode] = version
	s.lastFull[roomCode] = at
	return s.deliverLocked(group, data)
}

// deliverTimer sends a timer update unless the room received a full state
// at or after since. It reports whether anything was sent.
func (s *sessionStore) deliverTimer(roomCode string, data []byte, since time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastFull[roomCode]; ok && !last.Before(since) {
		return false
	}
	return s.deliverLocked(s.rooms[roomCode], data) > 0
}

func (s *sessionStore) deliverLocked(group map[*client]struct{}, data []byte) int {
	sent := 0
	for c := range group {
		if c.enqueue(data) {
			sent++
		}
	}
	return sent
}

func (s *sessionStore) members(roomCode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms[roomCode])
}

func (s *sessionStore) closeAll() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
