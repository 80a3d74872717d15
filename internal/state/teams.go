// ABOUTME: Team and user records, team membership lists, and presence/typing sets.
// ABOUTME: Store-only entities; no optimistic path, mutators stay idempotent.

package state

import "sort"

// AddTeam inserts a team. No-op when the id already exists.
func (s *Store) AddTeam(t *Team) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[t.ID]; exists {
		return
	}
	s.teams[t.ID] = t
}

// UpdateTeam renames an existing team. Returns false when the id is absent.
func (s *Store) UpdateTeam(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[id]
	if !ok {
		return false
	}
	t.Name = name
	return true
}

// Team returns the team with the given id.
func (s *Store) Team(id string) (*Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	return t, ok
}

// Teams returns all teams sorted by creation time, then id.
func (s *Store) Teams() []*Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AddUser inserts a user. No-op when the id already exists.
func (s *Store) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return
	}
	s.users[u.ID] = u
}

// User returns the user with the given id.
func (s *Store) User(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// AddTeamMember links a user into a team's member list. Idempotent.
func (s *Store) AddTeamMember(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	linkLocked(s.teamMembers, teamID, userID)
}

// RemoveTeamMember removes a user from a team's member list and clears any
// presence or typing state they held there.
func (s *Store) RemoveTeamMember(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlinkLocked(s.teamMembers, teamID, userID)
	removeFromSet(s.online, teamID, userID)
	removeFromSet(s.typing, teamID, userID)
}

// TeamMemberIDs returns the team's member id list in join order. Absent
// teams get the shared empty slice.
func (s *Store) TeamMemberIDs(teamID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idsFor(s.teamMembers, teamID)
}

// SetUserOnline marks a user online in a team.
func (s *Store) SetUserOnline(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addToSet(s.online, teamID, userID)
}

// SetUserOffline marks a user offline in a team; going offline also stops
// any typing indicator.
func (s *Store) SetUserOffline(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removeFromSet(s.online, teamID, userID)
	removeFromSet(s.typing, teamID, userID)
}

// OnlineUserIDs returns the sorted online user ids for a team. Absent teams
// get the shared empty slice.
func (s *Store) OnlineUserIDs(teamID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSetIDs(s.online, teamID)
}

// SetTypingStarted marks a user as typing in a team.
func (s *Store) SetTypingStarted(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addToSet(s.typing, teamID, userID)
}

// SetTypingStopped clears a user's typing indicator in a team.
func (s *Store) SetTypingStopped(teamID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removeFromSet(s.typing, teamID, userID)
}

// TypingUserIDs returns the sorted typing user ids for a team. Absent teams
// get the shared empty slice.
func (s *Store) TypingUserIDs(teamID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSetIDs(s.typing, teamID)
}
