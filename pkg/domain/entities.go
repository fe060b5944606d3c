// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by trackcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityLocation identifies a node in the containment hierarchy.
	EntityLocation EntityType = "location"
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityAsset identifies a tracked physical asset.
	EntityAsset EntityType = "asset"
	// EntityUser identifies a user record assets can be assigned to.
	EntityUser EntityType = "user"
	// EntityTransaction identifies a check-in/check-out history row.
	EntityTransaction EntityType = "transaction"
	// EntityMaintenanceLog identifies a maintenance history row.
	EntityMaintenanceLog EntityType = "maintenance_log"
	// EntityDocument identifies metadata for a file attached to an asset.
	EntityDocument EntityType = "document"
)

// Conventional asset statuses. The core stores whatever string the caller
// supplies; these constants only name the vocabulary the bundled frontend
// uses.
const (
	AssetStatusAvailable   = "AVAILABLE"
	AssetStatusCheckedOut  = "CHECKED_OUT"
	AssetStatusMaintenance = "MAINTENANCE"
	AssetStatusRetired     = "RETIRED"
)

// Conventional project statuses. Opaque to the core, same as asset statuses.
const (
	ProjectStatusPlanned   = "PLANNED"
	ProjectStatusActive    = "IN_PROGRESS"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusOnHold    = "ON_HOLD"
	ProjectStatusCancelled = "CANCELLED"
)

// Transaction history row kinds.
const (
	TransactionCheckOut = "CHECK_OUT"
	TransactionCheckIn  = "CHECK_IN"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is a node in the containment hierarchy. Locations form a forest:
// a location with a nil ParentID is a root. A location can hold assets and
// child locations, and may only be deleted when it holds neither.
type Location struct {
	Base
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	ParentID     *string `json:"parent_id"`
	Description  *string `json:"description,omitempty"`
	DisplayOrder int     `json:"display_order"`
}

// Project is a named initiative assets can be assigned to.
type Project struct {
	Base
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	DisplayOrder int        `json:"display_order"`
}

// Asset is a tracked physical item. It is always placed in exactly one
// Location and optionally assigned to a Project and/or a User.
type Asset struct {
	Base
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	SerialNumber       *string    `json:"serial_number,omitempty"`
	Barcode            *string    `json:"barcode,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	PurchaseDate       *time.Time `json:"purchase_date"`
	WarrantyExpiration *time.Time `json:"warranty_expiration"`
	LocationID         string     `json:"location_id"`
	ProjectID          *string    `json:"project_id"`
	AssigneeID         *string    `json:"assignee_id"`
}

// User is a person assets can be checked out to.
type User struct {
	Base
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TransactionRecord logs a check-in or check-out event for an asset.
type TransactionRecord struct {
	Base
	AssetID    string     `json:"asset_id"`
	UserID     *string    `json:"user_id"`
	Type       string     `json:"type"`
	OccurredAt time.Time  `json:"occurred_at"`
	DueDate    *time.Time `json:"due_date"`
	Notes      *string    `json:"notes,omitempty"`
}

// MaintenanceLog records maintenance performed on an asset.
type MaintenanceLog struct {
	Base
	AssetID       string     `json:"asset_id"`
	PerformedByID *string    `json:"performed_by_id"`
	Description   string     `json:"description"`
	PerformedAt   time.Time  `json:"performed_at"`
	NextDue       *time.Time `json:"next_due"`
	Cost          *float64   `json:"cost"`
}

// Document holds metadata for a file attached to an asset. The file bytes
// live in the blob store under BlobKey.
type Document struct {
	Base
	AssetID      string  `json:"asset_id"`
	Name         string  `json:"name"`
	ContentType  string  `json:"content_type,omitempty"`
	BlobKey      string  `json:"blob_key"`
	Size         int64   `json:"size_bytes"`
	UploadedByID *string `json:"uploaded_by_id"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the change log.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
