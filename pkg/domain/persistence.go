package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateLocation(Location) (Location, error)
	UpdateLocation(id string, mutator func(*Location) error) (Location, error)
	DeleteLocation(id string) error
	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)
	DeleteProject(id string) error
	CreateAsset(Asset) (Asset, error)
	UpdateAsset(id string, mutator func(*Asset) error) (Asset, error)
	DeleteAsset(id string) error
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	DeleteUser(id string) error
	CreateTransactionRecord(TransactionRecord) (TransactionRecord, error)
	DeleteTransactionRecord(id string) error
	CreateMaintenanceLog(MaintenanceLog) (MaintenanceLog, error)
	DeleteMaintenanceLog(id string) error
	CreateDocument(Document) (Document, error)
	DeleteDocument(id string) error
	FindLocation(id string) (Location, bool)
	FindProject(id string) (Project, bool)
	FindAsset(id string) (Asset, bool)
	FindUser(id string) (User, bool)
	FindDocument(id string) (Document, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// integrity predicates.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetLocation(id string) (Location, bool)
	ListLocations() []Location
	GetProject(id string) (Project, bool)
	ListProjects() []Project
	GetAsset(id string) (Asset, bool)
	ListAssets() []Asset
	GetUser(id string) (User, bool)
	ListUsers() []User
	ListTransactions() []TransactionRecord
	ListMaintenanceLogs() []MaintenanceLog
	ListDocuments() []Document
}
