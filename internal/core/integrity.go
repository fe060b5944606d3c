package core

import (
	"trackcore/pkg/domain"
)

// Boundary display messages. The tagged error keeps kind and reason intact;
// these strings are only what an outer surface shows the user.
const (
	msgLocationHasChildren = "Cannot delete location with child locations"
	msgLocationHasAssets   = "Cannot delete location that contains assets"
	msgProjectHasAssets    = "Cannot delete project that has assigned assets"
)

// CanDeleteLocation reports whether the location may be removed. Child
// locations are checked before contained assets so a location failing both
// guards always reports the same reason.
func CanDeleteLocation(view TransactionView, id string) error {
	if _, ok := view.FindLocation(id); !ok {
		return domain.NotFound(domain.EntityLocation, id)
	}
	for _, loc := range view.ListLocations() {
		if loc.ParentID != nil && *loc.ParentID == id {
			return domain.IntegrityViolation(domain.ReasonHasChildLocations, domain.EntityLocation, id, msgLocationHasChildren)
		}
	}
	for _, asset := range view.ListAssets() {
		if asset.LocationID == id {
			return domain.IntegrityViolation(domain.ReasonContainsAssets, domain.EntityLocation, id, msgLocationHasAssets)
		}
	}
	return nil
}

// CanDeleteProject reports whether the project may be removed. A project
// with any asset still assigned is protected.
func CanDeleteProject(view TransactionView, id string) error {
	if _, ok := view.FindProject(id); !ok {
		return domain.NotFound(domain.EntityProject, id)
	}
	for _, asset := range view.ListAssets() {
		if asset.ProjectID != nil && *asset.ProjectID == id {
			return domain.IntegrityViolation(domain.ReasonHasAssignedAssets, domain.EntityProject, id, msgProjectHasAssets)
		}
	}
	return nil
}

// CanAttachParent reports whether locationID may adopt parentID as its
// parent. A nil parent always succeeds (the location becomes a root). The
// parent must exist and must not be the location itself or one of its
// descendants, which would close a cycle.
func CanAttachParent(view TransactionView, locationID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if _, ok := view.FindLocation(*parentID); !ok {
		return domain.IntegrityViolation(domain.ReasonParentNotFound, domain.EntityLocation, *parentID, "parent location not found")
	}
	// Walk from the candidate parent toward the root. Hitting locationID
	// means the candidate lives in locationID's subtree.
	seen := map[string]bool{}
	current := *parentID
	for {
		if current == locationID {
			return domain.IntegrityViolation(domain.ReasonLocationCycle, domain.EntityLocation, locationID, "location cannot be moved under its own subtree")
		}
		if seen[current] {
			return nil
		}
		seen[current] = true
		loc, ok := view.FindLocation(current)
		if !ok || loc.ParentID == nil {
			return nil
		}
		current = *loc.ParentID
	}
}
