package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackcore/pkg/domain"
)

func newTestService(opts ...ServiceOption) *Service {
	return NewInMemoryService(NewDefaultRulesEngine(), opts...)
}

func mustLocation(t *testing.T, svc *Service, input LocationInput) Location {
	t.Helper()
	loc, _, err := svc.CreateLocation(context.Background(), input)
	if err != nil {
		t.Fatalf("create location %s: %v", input.Name, err)
	}
	return loc
}

func mustProject(t *testing.T, svc *Service, input ProjectInput) Project {
	t.Helper()
	project, _, err := svc.CreateProject(context.Background(), input)
	if err != nil {
		t.Fatalf("create project %s: %v", input.Name, err)
	}
	return project
}

func mustAsset(t *testing.T, svc *Service, asset Asset) Asset {
	t.Helper()
	created, _, err := svc.CreateAsset(context.Background(), asset)
	if err != nil {
		t.Fatalf("create asset %s: %v", asset.Name, err)
	}
	return created
}

func mustUser(t *testing.T, svc *Service, user User) User {
	t.Helper()
	created, _, err := svc.CreateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("create user %s: %v", user.Name, err)
	}
	return created
}

func TestDeleteLocationGuards(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	warehouse := mustLocation(t, svc, LocationInput{Name: "Warehouse", Kind: "warehouse"})
	shelf := mustLocation(t, svc, LocationInput{Name: "Shelf A", Kind: "shelf", ParentID: &warehouse.ID})
	asset := mustAsset(t, svc, Asset{Name: "Oscilloscope", Type: "instrument", LocationID: shelf.ID})

	_, _, err := svc.DeleteLocation(ctx, warehouse.ID)
	if domain.ReasonOf(err) != domain.ReasonHasChildLocations {
		t.Fatalf("expected child guard, got %v", err)
	}
	if err.Error() != "Cannot delete location with child locations" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	_, _, err = svc.DeleteLocation(ctx, shelf.ID)
	if domain.ReasonOf(err) != domain.ReasonContainsAssets {
		t.Fatalf("expected asset guard, got %v", err)
	}
	if err.Error() != "Cannot delete location that contains assets" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, _, err := svc.MoveAsset(ctx, asset.ID, warehouse.ID); err != nil {
		t.Fatalf("move asset: %v", err)
	}
	deleted, _, err := svc.DeleteLocation(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("delete empty shelf: %v", err)
	}
	if deleted.ID != shelf.ID || deleted.Name != "Shelf A" {
		t.Fatalf("expected deleted snapshot, got %+v", deleted)
	}
	if _, err := svc.GetLocation(ctx, shelf.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected shelf gone, got %v", err)
	}

	// The warehouse now holds the asset directly.
	_, _, err = svc.DeleteLocation(ctx, warehouse.ID)
	if domain.ReasonOf(err) != domain.ReasonContainsAssets {
		t.Fatalf("expected asset guard on warehouse, got %v", err)
	}
	if _, err := svc.DeleteAsset(ctx, asset.ID); err != nil {
		t.Fatalf("delete asset: %v", err)
	}
	if _, _, err := svc.DeleteLocation(ctx, warehouse.ID); err != nil {
		t.Fatalf("delete warehouse: %v", err)
	}
}

func TestDeleteLocationChecksChildrenBeforeAssets(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	parent := mustLocation(t, svc, LocationInput{Name: "Lab", Kind: "room"})
	mustLocation(t, svc, LocationInput{Name: "Cabinet", Kind: "cabinet", ParentID: &parent.ID})
	mustAsset(t, svc, Asset{Name: "Meter", Type: "tool", LocationID: parent.ID})

	// Failing both guards always reports the child guard.
	_, _, err := svc.DeleteLocation(ctx, parent.ID)
	if domain.ReasonOf(err) != domain.ReasonHasChildLocations {
		t.Fatalf("expected deterministic child guard, got %v", err)
	}
}

func TestCreateLocationRejectsMissingParent(t *testing.T) {
	svc := newTestService()
	missing := "does-not-exist"
	_, _, err := svc.CreateLocation(context.Background(), LocationInput{Name: "Shelf", Kind: "shelf", ParentID: &missing})
	if domain.ReasonOf(err) != domain.ReasonParentNotFound {
		t.Fatalf("expected parent guard, got %v", err)
	}
	if domain.KindOf(err) != domain.KindIntegrityViolation {
		t.Fatalf("expected integrity kind, got %v", domain.KindOf(err))
	}
}

func TestReparentRejectsCycles(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := mustLocation(t, svc, LocationInput{Name: "A", Kind: "room"})
	b := mustLocation(t, svc, LocationInput{Name: "B", Kind: "room", ParentID: &a.ID})
	c := mustLocation(t, svc, LocationInput{Name: "C", Kind: "room", ParentID: &b.ID})

	_, _, err := svc.UpdateLocation(ctx, a.ID, func(l *Location) error {
		l.ParentID = &c.ID
		return nil
	})
	if domain.ReasonOf(err) != domain.ReasonLocationCycle {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
	// The failed reparent must not have committed.
	got, err := svc.GetLocation(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ParentID != nil {
		t.Fatalf("expected A to stay a root, got parent %v", *got.ParentID)
	}

	_, _, err = svc.UpdateLocation(ctx, b.ID, func(l *Location) error {
		l.ParentID = &b.ID
		return nil
	})
	if domain.ReasonOf(err) != domain.ReasonLocationCycle {
		t.Fatalf("expected self-parent rejection, got %v", err)
	}
}

func TestCreateLocationRequiresName(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.CreateLocation(context.Background(), LocationInput{Kind: "room"})
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProjectDateParsing(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	start := "2026-01-15"
	end := "2026-06-30T12:00:00Z"
	project := mustProject(t, svc, ProjectInput{Name: "Refit", StartDate: &start, EndDate: &end})
	if project.Status != domain.ProjectStatusPlanned {
		t.Fatalf("expected default status, got %s", project.Status)
	}
	if project.StartDate == nil || !project.StartDate.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start date %v", project.StartDate)
	}
	if project.EndDate == nil || !project.EndDate.Equal(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end date %v", project.EndDate)
	}

	bad := "January 15th"
	_, _, err := svc.CreateProject(ctx, ProjectInput{Name: "Broken", StartDate: &bad})
	if domain.ReasonOf(err) != domain.ReasonInvalidDate {
		t.Fatalf("expected invalid date, got %v", err)
	}
	// Nothing was written for the rejected project.
	if got := svc.ListProjects(ctx); len(got) != 1 {
		t.Fatalf("expected single project, got %+v", got)
	}
}

func TestDeleteProjectGuard(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Bench", Kind: "room"})
	project := mustProject(t, svc, ProjectInput{Name: "Line 1", Status: domain.ProjectStatusActive})
	asset := mustAsset(t, svc, Asset{Name: "Crimper", Type: "tool", LocationID: loc.ID, ProjectID: &project.ID})

	_, _, err := svc.DeleteProject(ctx, project.ID)
	if domain.ReasonOf(err) != domain.ReasonHasAssignedAssets {
		t.Fatalf("expected assignment guard, got %v", err)
	}
	if err.Error() != "Cannot delete project that has assigned assets" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, _, err := svc.AssignAssetProject(ctx, asset.ID, nil); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	deleted, _, err := svc.DeleteProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if deleted.ID != project.ID || deleted.Name != "Line 1" {
		t.Fatalf("expected deleted snapshot, got %+v", deleted)
	}
}

func TestAssetDefaultsAndDetail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Rack", Kind: "rack"})
	project := mustProject(t, svc, ProjectInput{Name: "Audit"})
	user := mustUser(t, svc, User{Name: "Dana", Email: "dana@example.com", Role: "member"})
	asset := mustAsset(t, svc, Asset{Name: "Analyzer", Type: "instrument", LocationID: loc.ID, ProjectID: &project.ID, AssigneeID: &user.ID})
	if asset.Status != domain.AssetStatusAvailable {
		t.Fatalf("expected default status, got %s", asset.Status)
	}

	detail, err := svc.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if detail.Location.ID != loc.ID {
		t.Fatalf("expected resolved location, got %+v", detail.Location)
	}
	if detail.Project == nil || detail.Project.ID != project.ID {
		t.Fatalf("expected resolved project, got %+v", detail.Project)
	}
	if detail.Assignee == nil || detail.Assignee.ID != user.ID {
		t.Fatalf("expected resolved assignee, got %+v", detail.Assignee)
	}

	summaries, err := svc.ListAssets(ctx)
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	sum := summaries[0]
	if sum.LocationName != "Rack" || sum.ProjectName == nil || *sum.ProjectName != "Audit" || sum.AssigneeName == nil || *sum.AssigneeName != "Dana" {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestMoveAssetRequiresLocation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Bay", Kind: "room"})
	asset := mustAsset(t, svc, Asset{Name: "Pallet Jack", Type: "equipment", LocationID: loc.ID})
	_, _, err := svc.MoveAsset(ctx, asset.ID, "missing")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := svc.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LocationID != loc.ID {
		t.Fatalf("rejected move must not change placement, got %s", got.LocationID)
	}
}

func TestCheckOutCheckIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	svc := newTestService(WithClock(ClockFunc(func() time.Time { return now })))
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Tool Crib", Kind: "room"})
	user := mustUser(t, svc, User{Name: "Riley", Email: "riley@example.com", Role: "member"})
	asset := mustAsset(t, svc, Asset{Name: "Impact Driver", Type: "tool", LocationID: loc.ID})

	due := now.Add(72 * time.Hour)
	checkedOut, _, err := svc.CheckOutAsset(ctx, asset.ID, user.ID, &due, nil)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if checkedOut.Status != domain.AssetStatusCheckedOut {
		t.Fatalf("expected checked out status, got %s", checkedOut.Status)
	}
	if checkedOut.AssigneeID == nil || *checkedOut.AssigneeID != user.ID {
		t.Fatalf("expected assignee set, got %+v", checkedOut.AssigneeID)
	}

	history := svc.ListAssetTransactions(ctx, asset.ID)
	if len(history) != 1 || history[0].Type != domain.TransactionCheckOut {
		t.Fatalf("expected check-out record, got %+v", history)
	}
	if !history[0].OccurredAt.Equal(now) {
		t.Fatalf("expected clock timestamp, got %v", history[0].OccurredAt)
	}
	if history[0].DueDate == nil || !history[0].DueDate.Equal(due) {
		t.Fatalf("expected due date, got %+v", history[0].DueDate)
	}

	checkedIn, _, err := svc.CheckInAsset(ctx, asset.ID, nil)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if checkedIn.Status != domain.AssetStatusAvailable || checkedIn.AssigneeID != nil {
		t.Fatalf("expected available and unassigned, got %+v", checkedIn)
	}
	history = svc.ListAssetTransactions(ctx, asset.ID)
	if len(history) != 2 {
		t.Fatalf("expected two records, got %d", len(history))
	}
	var checkIn TransactionRecord
	for _, record := range history {
		if record.Type == domain.TransactionCheckIn {
			checkIn = record
		}
	}
	if checkIn.UserID == nil || *checkIn.UserID != user.ID {
		t.Fatalf("check-in must credit the prior assignee, got %+v", checkIn.UserID)
	}
}

func TestCheckOutRequiresUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Crib", Kind: "room"})
	asset := mustAsset(t, svc, Asset{Name: "Ladder", Type: "equipment", LocationID: loc.ID})
	_, _, err := svc.CheckOutAsset(ctx, asset.ID, "missing", nil, nil)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteAssetCascadesHistory(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Depot", Kind: "room"})
	user := mustUser(t, svc, User{Name: "Sam", Email: "sam@example.com", Role: "member"})
	asset := mustAsset(t, svc, Asset{Name: "Generator", Type: "equipment", LocationID: loc.ID})

	if _, _, err := svc.CheckOutAsset(ctx, asset.ID, user.ID, nil, nil); err != nil {
		t.Fatalf("check out: %v", err)
	}
	if _, _, err := svc.CheckInAsset(ctx, asset.ID, nil); err != nil {
		t.Fatalf("check in: %v", err)
	}
	if _, _, err := svc.RecordMaintenance(ctx, MaintenanceLog{AssetID: asset.ID, Description: "oil change"}); err != nil {
		t.Fatalf("record maintenance: %v", err)
	}

	if _, err := svc.DeleteAsset(ctx, asset.ID); err != nil {
		t.Fatalf("delete asset: %v", err)
	}
	if history := svc.ListAssetTransactions(ctx, asset.ID); len(history) != 0 {
		t.Fatalf("expected cascaded transactions, got %+v", history)
	}
	if logs := svc.ListAssetMaintenance(ctx, asset.ID); len(logs) != 0 {
		t.Fatalf("expected cascaded maintenance, got %+v", logs)
	}
	if _, err := svc.GetAsset(ctx, asset.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected asset gone, got %v", err)
	}
}

func TestDeleteUserBlockedWhileAssigned(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	loc := mustLocation(t, svc, LocationInput{Name: "Shop", Kind: "room"})
	user := mustUser(t, svc, User{Name: "Lee", Email: "lee@example.com", Role: "member"})
	asset := mustAsset(t, svc, Asset{Name: "Router", Type: "tool", LocationID: loc.ID, AssigneeID: &user.ID})

	_, err := svc.DeleteUser(ctx, user.ID)
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected rule block, got %v", err)
	}

	if _, _, err := svc.AssignAssetUser(ctx, asset.ID, nil); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if _, err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
}

func TestRecordTransactionValidatesType(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.RecordTransaction(context.Background(), TransactionRecord{AssetID: "a", Type: "LOST"})
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRecordMaintenanceRequiresDescription(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.RecordMaintenance(context.Background(), MaintenanceLog{AssetID: "a"})
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGetMissingEntities(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.GetLocation(ctx, "x"); !domain.IsNotFound(err) {
		t.Fatalf("location: %v", err)
	}
	if _, err := svc.GetProject(ctx, "x"); !domain.IsNotFound(err) {
		t.Fatalf("project: %v", err)
	}
	if _, err := svc.GetUser(ctx, "x"); !domain.IsNotFound(err) {
		t.Fatalf("user: %v", err)
	}
	if _, err := svc.GetAsset(ctx, "x"); !domain.IsNotFound(err) {
		t.Fatalf("asset: %v", err)
	}
}

func TestListChildLocations(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	root := mustLocation(t, svc, LocationInput{Name: "Root", Kind: "building"})
	mustLocation(t, svc, LocationInput{Name: "East Wing", Kind: "room", ParentID: &root.ID, DisplayOrder: 1})
	mustLocation(t, svc, LocationInput{Name: "West Wing", Kind: "room", ParentID: &root.ID, DisplayOrder: 0})
	mustLocation(t, svc, LocationInput{Name: "Annex", Kind: "building"})

	children := svc.ListChildLocations(ctx, root.ID)
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %+v", children)
	}
	if children[0].Name != "West Wing" || children[1].Name != "East Wing" {
		t.Fatalf("expected display order, got %+v", children)
	}
}
