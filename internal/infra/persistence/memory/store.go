// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Location aliases domain.Location for in-memory persistence operations.
	Location = domain.Location
	// Project aliases domain.Project.
	Project = domain.Project
	// Asset aliases domain.Asset.
	Asset = domain.Asset
	// User aliases domain.User.
	User = domain.User
	// TransactionRecord aliases domain.TransactionRecord.
	TransactionRecord = domain.TransactionRecord
	// MaintenanceLog aliases domain.MaintenanceLog.
	MaintenanceLog = domain.MaintenanceLog
	// Document aliases domain.Document.
	Document = domain.Document
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	locations    map[string]Location
	projects     map[string]Project
	assets       map[string]Asset
	users        map[string]User
	transactions map[string]TransactionRecord
	maintenance  map[string]MaintenanceLog
	documents    map[string]Document
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Locations    map[string]Location          `json:"locations"`
	Projects     map[string]Project           `json:"projects"`
	Assets       map[string]Asset             `json:"assets"`
	Users        map[string]User              `json:"users"`
	Transactions map[string]TransactionRecord `json:"transactions"`
	Maintenance  map[string]MaintenanceLog    `json:"maintenance"`
	Documents    map[string]Document          `json:"documents"`
}

func newMemoryState() memoryState {
	return memoryState{
		locations:    make(map[string]Location),
		projects:     make(map[string]Project),
		assets:       make(map[string]Asset),
		users:        make(map[string]User),
		transactions: make(map[string]TransactionRecord),
		maintenance:  make(map[string]MaintenanceLog),
		documents:    make(map[string]Document),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Locations:    make(map[string]Location, len(state.locations)),
		Projects:     make(map[string]Project, len(state.projects)),
		Assets:       make(map[string]Asset, len(state.assets)),
		Users:        make(map[string]User, len(state.users)),
		Transactions: make(map[string]TransactionRecord, len(state.transactions)),
		Maintenance:  make(map[string]MaintenanceLog, len(state.maintenance)),
		Documents:    make(map[string]Document, len(state.documents)),
	}
	for k, v := range state.locations {
		s.Locations[k] = cloneLocation(v)
	}
	for k, v := range state.projects {
		s.Projects[k] = cloneProject(v)
	}
	for k, v := range state.assets {
		s.Assets[k] = cloneAsset(v)
	}
	for k, v := range state.users {
		s.Users[k] = v
	}
	for k, v := range state.transactions {
		s.Transactions[k] = cloneTransaction(v)
	}
	for k, v := range state.maintenance {
		s.Maintenance[k] = cloneMaintenance(v)
	}
	for k, v := range state.documents {
		s.Documents[k] = cloneDocument(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Locations {
		state.locations[k] = cloneLocation(v)
	}
	for k, v := range s.Projects {
		state.projects[k] = cloneProject(v)
	}
	for k, v := range s.Assets {
		state.assets[k] = cloneAsset(v)
	}
	for k, v := range s.Users {
		state.users[k] = v
	}
	for k, v := range s.Transactions {
		state.transactions[k] = cloneTransaction(v)
	}
	for k, v := range s.Maintenance {
		state.maintenance[k] = cloneMaintenance(v)
	}
	for k, v := range s.Documents {
		state.documents[k] = cloneDocument(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable backends: nil
// maps become empty, and references to records that no longer exist are
// cleared or dropped so a reload never resurrects a dangling reference.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Locations == nil {
		snapshot.Locations = map[string]Location{}
	}
	if snapshot.Projects == nil {
		snapshot.Projects = map[string]Project{}
	}
	if snapshot.Assets == nil {
		snapshot.Assets = map[string]Asset{}
	}
	if snapshot.Users == nil {
		snapshot.Users = map[string]User{}
	}
	if snapshot.Transactions == nil {
		snapshot.Transactions = map[string]TransactionRecord{}
	}
	if snapshot.Maintenance == nil {
		snapshot.Maintenance = map[string]MaintenanceLog{}
	}
	if snapshot.Documents == nil {
		snapshot.Documents = map[string]Document{}
	}

	locationExists := func(id string) bool {
		_, ok := snapshot.Locations[id]
		return ok
	}
	projectExists := func(id string) bool {
		_, ok := snapshot.Projects[id]
		return ok
	}
	assetExists := func(id string) bool {
		_, ok := snapshot.Assets[id]
		return ok
	}
	userExists := func(id string) bool {
		_, ok := snapshot.Users[id]
		return ok
	}

	for id, location := range snapshot.Locations {
		if location.ParentID != nil && !locationExists(*location.ParentID) {
			location.ParentID = nil
			snapshot.Locations[id] = location
		}
	}

	for id, asset := range snapshot.Assets {
		if asset.LocationID == "" || !locationExists(asset.LocationID) {
			delete(snapshot.Assets, id)
			continue
		}
		if asset.ProjectID != nil && !projectExists(*asset.ProjectID) {
			asset.ProjectID = nil
		}
		if asset.AssigneeID != nil && !userExists(*asset.AssigneeID) {
			asset.AssigneeID = nil
		}
		snapshot.Assets[id] = asset
	}

	for id, record := range snapshot.Transactions {
		if record.AssetID == "" || !assetExists(record.AssetID) {
			delete(snapshot.Transactions, id)
			continue
		}
		if record.UserID != nil && !userExists(*record.UserID) {
			record.UserID = nil
		}
		snapshot.Transactions[id] = record
	}

	for id, entry := range snapshot.Maintenance {
		if entry.AssetID == "" || !assetExists(entry.AssetID) {
			delete(snapshot.Maintenance, id)
			continue
		}
		if entry.PerformedByID != nil && !userExists(*entry.PerformedByID) {
			entry.PerformedByID = nil
		}
		snapshot.Maintenance[id] = entry
	}

	for id, doc := range snapshot.Documents {
		if doc.AssetID == "" || !assetExists(doc.AssetID) {
			delete(snapshot.Documents, id)
			continue
		}
		if doc.UploadedByID != nil && !userExists(*doc.UploadedByID) {
			doc.UploadedByID = nil
		}
		snapshot.Documents[id] = doc
	}

	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.locations {
		cloned.locations[k] = cloneLocation(v)
	}
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	for k, v := range s.assets {
		cloned.assets[k] = cloneAsset(v)
	}
	for k, v := range s.users {
		cloned.users[k] = v
	}
	for k, v := range s.transactions {
		cloned.transactions[k] = cloneTransaction(v)
	}
	for k, v := range s.maintenance {
		cloned.maintenance[k] = cloneMaintenance(v)
	}
	for k, v := range s.documents {
		cloned.documents[k] = cloneDocument(v)
	}
	return cloned
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLocation(l Location) Location {
	cp := l
	cp.ParentID = clonePtr(l.ParentID)
	cp.Description = clonePtr(l.Description)
	return cp
}

func cloneProject(p Project) Project {
	cp := p
	cp.Description = clonePtr(p.Description)
	cp.StartDate = clonePtr(p.StartDate)
	cp.EndDate = clonePtr(p.EndDate)
	return cp
}

func cloneAsset(a Asset) Asset {
	cp := a
	cp.SerialNumber = clonePtr(a.SerialNumber)
	cp.Barcode = clonePtr(a.Barcode)
	cp.Notes = clonePtr(a.Notes)
	cp.PurchaseDate = clonePtr(a.PurchaseDate)
	cp.WarrantyExpiration = clonePtr(a.WarrantyExpiration)
	cp.ProjectID = clonePtr(a.ProjectID)
	cp.AssigneeID = clonePtr(a.AssigneeID)
	return cp
}

func cloneTransaction(t TransactionRecord) TransactionRecord {
	cp := t
	cp.UserID = clonePtr(t.UserID)
	cp.DueDate = clonePtr(t.DueDate)
	cp.Notes = clonePtr(t.Notes)
	return cp
}

func cloneMaintenance(m MaintenanceLog) MaintenanceLog {
	cp := m
	cp.PerformedByID = clonePtr(m.PerformedByID)
	cp.NextDue = clonePtr(m.NextDue)
	cp.Cost = clonePtr(m.Cost)
	return cp
}

func cloneDocument(d Document) Document {
	cp := d
	cp.UploadedByID = clonePtr(d.UploadedByID)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the post-mutation state before the copy
// is swapped in; blocking violations abort the commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}
