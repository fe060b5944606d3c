package core

import (
	"context"
	"fmt"

	"trackcore/pkg/domain"
)

// AssetReferenceRule enforces that every asset sits in an existing location
// and that optional project and assignee references resolve.
func AssetReferenceRule() domain.Rule {
	return assetReferenceRule{}
}

type assetReferenceRule struct{}

func (assetReferenceRule) Name() string { return "asset_references" }

func (assetReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, asset := range view.ListAssets() {
		if asset.LocationID == "" {
			res.Violations = append(res.Violations, assetViolation(asset.ID, fmt.Sprintf("asset %s has no location", asset.ID)))
		} else if _, ok := view.FindLocation(asset.LocationID); !ok {
			res.Violations = append(res.Violations, assetViolation(asset.ID, fmt.Sprintf("asset %s references missing location %s", asset.ID, asset.LocationID)))
		}
		if asset.ProjectID != nil {
			if _, ok := view.FindProject(*asset.ProjectID); !ok {
				res.Violations = append(res.Violations, assetViolation(asset.ID, fmt.Sprintf("asset %s references missing project %s", asset.ID, *asset.ProjectID)))
			}
		}
		if asset.AssigneeID != nil {
			if _, ok := view.FindUser(*asset.AssigneeID); !ok {
				res.Violations = append(res.Violations, assetViolation(asset.ID, fmt.Sprintf("asset %s references missing user %s", asset.ID, *asset.AssigneeID)))
			}
		}
	}

	return res, nil
}

func assetViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "asset_references",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityAsset,
		EntityID: entityID,
	}
}
