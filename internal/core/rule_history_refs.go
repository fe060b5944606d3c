package core

import (
	"context"
	"fmt"

	"trackcore/pkg/domain"
)

// HistoryReferenceRule enforces that history rows and document metadata
// always point at an existing asset, and at existing users when set.
func HistoryReferenceRule() domain.Rule {
	return historyReferenceRule{}
}

type historyReferenceRule struct{}

func (historyReferenceRule) Name() string { return "history_references" }

func (historyReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	assetExists := func(id string) bool {
		_, ok := view.FindAsset(id)
		return ok
	}
	userExists := func(id string) bool {
		_, ok := view.FindUser(id)
		return ok
	}

	for _, record := range view.ListTransactions() {
		if !assetExists(record.AssetID) {
			res.Violations = append(res.Violations, historyViolation(domain.EntityTransaction, record.ID, fmt.Sprintf("transaction %s references missing asset %s", record.ID, record.AssetID)))
		}
		if record.UserID != nil && !userExists(*record.UserID) {
			res.Violations = append(res.Violations, historyViolation(domain.EntityTransaction, record.ID, fmt.Sprintf("transaction %s references missing user %s", record.ID, *record.UserID)))
		}
	}

	for _, entry := range view.ListMaintenanceLogs() {
		if !assetExists(entry.AssetID) {
			res.Violations = append(res.Violations, historyViolation(domain.EntityMaintenanceLog, entry.ID, fmt.Sprintf("maintenance log %s references missing asset %s", entry.ID, entry.AssetID)))
		}
		if entry.PerformedByID != nil && !userExists(*entry.PerformedByID) {
			res.Violations = append(res.Violations, historyViolation(domain.EntityMaintenanceLog, entry.ID, fmt.Sprintf("maintenance log %s references missing user %s", entry.ID, *entry.PerformedByID)))
		}
	}

	for _, doc := range view.ListDocuments() {
		if !assetExists(doc.AssetID) {
			res.Violations = append(res.Violations, historyViolation(domain.EntityDocument, doc.ID, fmt.Sprintf("document %s references missing asset %s", doc.ID, doc.AssetID)))
		}
		if doc.UploadedByID != nil && !userExists(*doc.UploadedByID) {
			res.Violations = append(res.Violations, historyViolation(domain.EntityDocument, doc.ID, fmt.Sprintf("document %s references missing user %s", doc.ID, *doc.UploadedByID)))
		}
	}

	return res, nil
}

func historyViolation(entity domain.EntityType, entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "history_references",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: entityID,
	}
}
