// Package core implements the transactional entity service for trackcore:
// location hierarchy management, project assignment, asset placement, and
// the integrity guards that keep references consistent.
package core

import (
	"trackcore/pkg/domain"
)

type (
	// Location aliases the domain location entity.
	Location = domain.Location
	// Project aliases the domain project entity.
	Project = domain.Project
	// Asset aliases the domain asset entity.
	Asset = domain.Asset
	// User aliases the domain user entity.
	User = domain.User
	// TransactionRecord aliases the domain check-in/check-out history row.
	TransactionRecord = domain.TransactionRecord
	// MaintenanceLog aliases the domain maintenance history row.
	MaintenanceLog = domain.MaintenanceLog
	// Document aliases the domain document metadata entity.
	Document = domain.Document
	// EntityType aliases the domain entity type identifier.
	EntityType = domain.EntityType
	// Severity aliases rule severity levels.
	Severity = domain.Severity
	// Change aliases the transactional change record.
	Change = domain.Change
	// Violation aliases a rule violation.
	Violation = domain.Violation
	// Result aliases the aggregated rule evaluation result.
	Result = domain.Result
	// Rule aliases the rule contract evaluated at commit time.
	Rule = domain.Rule
	// RuleView aliases the read-only evaluation view.
	RuleView = domain.RuleView
	// RulesEngine aliases the rule orchestration engine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases the transactional mutation surface.
	Transaction = domain.Transaction
	// TransactionView aliases the read-only snapshot surface.
	TransactionView = domain.TransactionView
	// PersistentStore aliases the storage contract consumed by the service.
	PersistentStore = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
