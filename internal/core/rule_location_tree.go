package core

import (
	"context"
	"fmt"

	"trackcore/pkg/domain"
)

// LocationTreeRule enforces that locations form a forest: every non-nil
// parent reference resolves, and following parents never loops.
func LocationTreeRule() domain.Rule {
	return locationTreeRule{}
}

type locationTreeRule struct{}

func (locationTreeRule) Name() string { return "location_tree" }

func (locationTreeRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	locations := view.ListLocations()
	index := make(map[string]domain.Location, len(locations))
	for _, loc := range locations {
		index[loc.ID] = loc
	}

	for _, loc := range locations {
		if loc.ParentID == nil {
			continue
		}
		if *loc.ParentID == loc.ID {
			res.Violations = append(res.Violations, treeViolation(loc.ID, fmt.Sprintf("location %s references itself as parent", loc.ID)))
			continue
		}
		if _, ok := index[*loc.ParentID]; !ok {
			res.Violations = append(res.Violations, treeViolation(loc.ID, fmt.Sprintf("location %s references missing parent %s", loc.ID, *loc.ParentID)))
			continue
		}
		// walk to the root; revisiting loc.ID means a cycle
		seen := map[string]bool{loc.ID: true}
		current := *loc.ParentID
		for {
			if seen[current] {
				res.Violations = append(res.Violations, treeViolation(loc.ID, fmt.Sprintf("location %s is part of a parent cycle", loc.ID)))
				break
			}
			seen[current] = true
			next, ok := index[current]
			if !ok || next.ParentID == nil {
				break
			}
			current = *next.ParentID
		}
	}

	return res, nil
}

func treeViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "location_tree",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityLocation,
		EntityID: entityID,
	}
}
