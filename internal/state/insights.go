// ABOUTME: Insight operations mirroring the message path, including optimistic reconciliation.
// ABOUTME: Insights are team-scoped; the content field drives the push-echo fallback match.

package state

import "slices"

// AddInsight inserts an insight into the entity map and its team's id list.
// Same semantics as AddMessage, including the content-match fallback for
// push echoes that carry no correlation id.
func (s *Store) AddInsight(in *Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.insights[in.ID]; exists && slices.Contains(s.teamInsights[in.TeamID], in.ID) {
		return
	}

	if corr, tempID, ok := s.matchPendingInsightLocked(in); ok {
		s.logger.Debug("reconciled push echo by content match",
			"team_id", in.TeamID,
			"temp_id", tempID,
			"server_id", in.ID)
		s.confirmInsightLocked(corr, tempID, in)
		return
	}

	s.addInsightLocked(in)
}

func (s *Store) addInsightLocked(in *Insight) {
	s.insights[in.ID] = in
	linkLocked(s.teamInsights, in.TeamID, in.ID)
}

func (s *Store) matchPendingInsightLocked(in *Insight) (corr, tempID string, ok bool) {
	for c, tid := range s.pendingInsights {
		temp, exists := s.insights[tid]
		if !exists {
			continue
		}
		if temp.TeamID == in.TeamID && temp.Content == in.Content {
			return c, tid, true
		}
	}
	return "", "", false
}

// AddInsightOptimistic inserts a temp insight and registers its correlation
// id for later confirmation or rollback.
func (s *Store) AddInsightOptimistic(temp *Insight, correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addInsightLocked(temp)

	for c, tid := range s.pendingInsights {
		if tid == temp.ID {
			delete(s.pendingInsights, c)
		}
	}
	s.pendingInsights[correlationID] = temp.ID
}

// ConfirmInsight replaces the tracked temp insight with the server record,
// preserving its position in the team's id list. With no tracked entry it
// behaves as a plain add.
func (s *Store) ConfirmInsight(correlationID string, server *Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempID, ok := s.pendingInsights[correlationID]
	if !ok {
		s.addInsightLocked(server)
		return
	}
	s.confirmInsightLocked(correlationID, tempID, server)
}

func (s *Store) confirmInsightLocked(correlationID, tempID string, server *Insight) {
	delete(s.pendingInsights, correlationID)
	delete(s.insights, tempID)
	s.insights[server.ID] = server
	swapLocked(s.teamInsights, server.TeamID, tempID, server.ID)
}

// RollbackInsight removes a failed optimistic insight entirely.
func (s *Store) RollbackInsight(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if temp, ok := s.insights[tempID]; ok {
		delete(s.insights, tempID)
		unlinkLocked(s.teamInsights, temp.TeamID, tempID)
	}
	for c, tid := range s.pendingInsights {
		if tid == tempID {
			delete(s.pendingInsights, c)
		}
	}
}

// UpdateInsight merges patch fields into an existing insight. Returns false
// when the id is absent.
func (s *Store) UpdateInsight(id string, patch InsightPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.insights[id]
	if !ok {
		return false
	}
	if patch.Content != nil {
		in.Content = *patch.Content
	}
	if patch.Kind != nil {
		in.Kind = *patch.Kind
	}
	return true
}

// RemoveInsight deletes an insight from the entity map and the team list.
func (s *Store) RemoveInsight(id, teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.insights, id)
	unlinkLocked(s.teamInsights, teamID, id)
	for c, tid := range s.pendingInsights {
		if tid == id {
			delete(s.pendingInsights, c)
		}
	}
}

// Insight returns the insight with the given id.
func (s *Store) Insight(id string) (*Insight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.insights[id]
	return in, ok
}

// InsightIDs returns the team's ordered insight id list. Absent teams get
// the shared empty slice.
func (s *Store) InsightIDs(teamID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idsFor(s.teamInsights, teamID)
}

// Insights resolves the team's insight ids in list order.
func (s *Store) Insights(teamID string) []*Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.teamInsights[teamID]
	out := make([]*Insight, 0, len(ids))
	for _, id := range ids {
		if in, ok := s.insights[id]; ok {
			out = append(out, in)
		}
	}
	return out
}

// PendingInsightID returns the temp id tracked for a correlation id, if any.
func (s *Store) PendingInsightID(correlationID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tid, ok := s.pendingInsights[correlationID]
	return tid, ok
}
