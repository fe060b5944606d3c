package memory

// Store-level accessors mirror the view methods against the committed state.

func (s *Store) GetLocation(id string) (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.locations[id]
	if !ok {
		return Location{}, false
	}
	return cloneLocation(l), true
}

func (s *Store) ListLocations() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListLocations()
}

func (s *Store) GetProject(id string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListProjects()
}

func (s *Store) GetAsset(id string) (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.assets[id]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(a), true
}

func (s *Store) ListAssets() []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListAssets()
}

func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	return u, ok
}

func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListUsers()
}

func (s *Store) ListTransactions() []TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListTransactions()
}

func (s *Store) ListMaintenanceLogs() []MaintenanceLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListMaintenanceLogs()
}

func (s *Store) ListDocuments() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListDocuments()
}
