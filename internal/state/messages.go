// ABOUTME: Message operations: add, update, remove, and the optimistic insert/confirm/rollback path.
// ABOUTME: AddMessage carries the push-echo content-match fallback for correlation-less echoes.

package state

import "slices"

// AddMessage inserts a message into the entity map and its team's id list.
// No-op when the id is already present in both. When the message matches an
// outstanding optimistic entry in the same team with identical content, the
// call reconciles that entry instead of inserting a second copy. That
// content match is a heuristic: two concurrent identical writes to one team
// inside the dedup window are indistinguishable from a push echo. The server
// does not propagate correlation ids on the push path, so this stays.
func (s *Store) AddMessage(m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[m.ID]; exists && slices.Contains(s.teamMessages[m.TeamID], m.ID) {
		return
	}

	if corr, tempID, ok := s.matchPendingMessageLocked(m); ok {
		s.logger.Debug("reconciled push echo by content match",
			"team_id", m.TeamID,
			"temp_id", tempID,
			"server_id", m.ID)
		s.confirmMessageLocked(corr, tempID, m)
		return
	}

	s.addMessageLocked(m)
}

func (s *Store) addMessageLocked(m *Message) {
	s.messages[m.ID] = m
	linkLocked(s.teamMessages, m.TeamID, m.ID)
}

// matchPendingMessageLocked looks for an outstanding optimistic message in
// the same team with the same content.
func (s *Store) matchPendingMessageLocked(m *Message) (corr, tempID string, ok bool) {
	for c, tid := range s.pendingMessages {
		temp, exists := s.messages[tid]
		if !exists {
			continue
		}
		if temp.TeamID == m.TeamID && temp.Content == m.Content {
			return c, tid, true
		}
	}
	return "", "", false
}

// AddMessageOptimistic inserts a locally-fabricated temp message and
// registers its correlation id for later confirmation or rollback.
func (s *Store) AddMessageOptimistic(temp *Message, correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addMessageLocked(temp)

	// A temp id lives in at most one tracking entry.
	for c, tid := range s.pendingMessages {
		if tid == temp.ID {
			delete(s.pendingMessages, c)
		}
	}
	s.pendingMessages[correlationID] = temp.ID
}

// ConfirmMessage promotes the optimistic entry tracked under correlationID
// to its server-confirmed identity: the entity-map key swaps from temp to
// server id and the server id takes the temp id's position in the team's
// list. With no tracked entry it behaves as a plain add.
func (s *Store) ConfirmMessage(correlationID string, server *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempID, ok := s.pendingMessages[correlationID]
	if !ok {
		s.addMessageLocked(server)
		return
	}
	s.confirmMessageLocked(correlationID, tempID, server)
}

func (s *Store) confirmMessageLocked(correlationID, tempID string, server *Message) {
	delete(s.pendingMessages, correlationID)
	delete(s.messages, tempID)
	s.messages[server.ID] = server
	swapLocked(s.teamMessages, server.TeamID, tempID, server.ID)
}

// RollbackMessage removes a failed optimistic message entirely; no trace
// remains in the entity map, the team list, or the correlation tracking.
func (s *Store) RollbackMessage(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if temp, ok := s.messages[tempID]; ok {
		delete(s.messages, tempID)
		unlinkLocked(s.teamMessages, temp.TeamID, tempID)
	}
	for c, tid := range s.pendingMessages {
		if tid == tempID {
			delete(s.pendingMessages, c)
		}
	}
}

// UpdateMessage merges patch fields into an existing message. Returns false
// (no-op) when the id is absent.
func (s *Store) UpdateMessage(id string, patch MessagePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return false
	}
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.EditedAt != nil {
		m.EditedAt = patch.EditedAt
	}
	if patch.Metadata != nil {
		if m.Metadata == nil {
			m.Metadata = make(map[string]string, len(patch.Metadata))
		}
		for k, v := range patch.Metadata {
			m.Metadata[k] = v
		}
	}
	return true
}

// RemoveMessage deletes a message from the entity map and filters it out of
// the team's id list.
func (s *Store) RemoveMessage(id, teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, id)
	unlinkLocked(s.teamMessages, teamID, id)
	for c, tid := range s.pendingMessages {
		if tid == id {
			delete(s.pendingMessages, c)
		}
	}
}

// Message returns the message with the given id.
func (s *Store) Message(id string) (*Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// MessageIDs returns the team's ordered message id list. Absent teams get
// the shared empty slice.
func (s *Store) MessageIDs(teamID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idsFor(s.teamMessages, teamID)
}

// Messages resolves the team's id list to message records in list order.
func (s *Store) Messages(teamID string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.teamMessages[teamID]
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// PendingMessageID returns the temp id tracked for a correlation id, if any.
func (s *Store) PendingMessageID(correlationID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tid, ok := s.pendingMessages[correlationID]
	return tid, ok
}
