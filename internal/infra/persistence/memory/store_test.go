package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackcore/pkg/domain"
)

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for range changes {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "block_all",
			Severity: domain.SeverityBlock,
			Message:  "mutations are not allowed",
		})
	}
	return res, nil
}

func mustCreateLocation(t *testing.T, store *Store, name string) Location {
	t.Helper()
	var created Location
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		loc, err := tx.CreateLocation(Location{Name: name, Kind: "room"})
		if err != nil {
			return err
		}
		created = loc
		return nil
	})
	if err != nil {
		t.Fatalf("create location %s: %v", name, err)
	}
	return created
}

func TestRunInTransactionCommits(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateLocation(t, store, "Warehouse")
	if created.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be stamped: %+v", created)
	}
	got, ok := store.GetLocation(created.ID)
	if !ok {
		t.Fatalf("expected committed location")
	}
	if got.Name != "Warehouse" {
		t.Fatalf("unexpected location: %+v", got)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	wantErr := errors.New("abort")
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateLocation(Location{Name: "Ghost", Kind: "room"}); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected abort error, got %v", err)
	}
	if len(store.ListLocations()) != 0 {
		t.Fatalf("expected empty store after rollback")
	}
}

func TestRunInTransactionRespectsContext(t *testing.T) {
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		t.Fatalf("transaction body must not run on cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)
	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateLocation(Location{Name: "Blocked", Kind: "room"})
		return err
	})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result, got %+v", res)
	}
	if len(store.ListLocations()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateLocation(t, store, "Old Name")
	var updated Location
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		loc, err := tx.UpdateLocation(created.ID, func(l *Location) error {
			l.Name = "New Name"
			l.ID = "tampered"
			return nil
		})
		if err != nil {
			return err
		}
		updated = loc
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("mutator must not change the ID, got %s", updated.ID)
	}
	if updated.Name != "New Name" {
		t.Fatalf("expected renamed location, got %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("CreatedAt must be preserved")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("UpdatedAt must move forward: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteLocation("missing")
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateLocationRejectsMissingParent(t *testing.T) {
	store := NewStore(nil)
	parent := "nope"
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateLocation(Location{Name: "Shelf", Kind: "shelf", ParentID: &parent})
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}
}

func TestReturnedValuesAreClones(t *testing.T) {
	store := NewStore(nil)
	desc := "original"
	var created Location
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		loc, err := tx.CreateLocation(Location{Name: "Clone Check", Kind: "room", Description: &desc})
		if err != nil {
			return err
		}
		created = loc
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	*created.Description = "mutated"
	stored, _ := store.GetLocation(created.ID)
	if stored.Description == nil || *stored.Description != "original" {
		t.Fatalf("store state leaked through clone: %+v", stored)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore(nil)
	loc := mustCreateLocation(t, store, "Round Trip")
	snapshot := store.ExportState()

	restored := NewStore(nil)
	restored.ImportState(snapshot)
	got, ok := restored.GetLocation(loc.ID)
	if !ok || got.Name != "Round Trip" {
		t.Fatalf("expected restored location, got %+v ok=%v", got, ok)
	}
}

func TestImportStateNormalizesDanglingReferences(t *testing.T) {
	missing := "missing"
	snapshot := Snapshot{
		Locations: map[string]Location{
			"loc-1": {Base: domain.Base{ID: "loc-1"}, Name: "Room", Kind: "room", ParentID: &missing},
		},
		Assets: map[string]Asset{
			"asset-1": {Base: domain.Base{ID: "asset-1"}, Name: "Scope", LocationID: "loc-1", ProjectID: &missing, AssigneeID: &missing},
			"asset-2": {Base: domain.Base{ID: "asset-2"}, Name: "Orphan", LocationID: "gone"},
		},
		Transactions: map[string]TransactionRecord{
			"txn-1": {Base: domain.Base{ID: "txn-1"}, AssetID: "asset-1", UserID: &missing, Type: domain.TransactionCheckOut, OccurredAt: time.Now()},
			"txn-2": {Base: domain.Base{ID: "txn-2"}, AssetID: "asset-2", Type: domain.TransactionCheckIn, OccurredAt: time.Now()},
		},
		Maintenance: map[string]MaintenanceLog{
			"mnt-1": {Base: domain.Base{ID: "mnt-1"}, AssetID: "asset-2", Description: "orphaned"},
		},
		Documents: map[string]Document{
			"doc-1": {Base: domain.Base{ID: "doc-1"}, AssetID: "asset-1", Name: "manual.pdf", UploadedByID: &missing},
		},
	}

	store := NewStore(nil)
	store.ImportState(snapshot)

	locations := store.ListLocations()
	if len(locations) != 1 || locations[0].ParentID != nil {
		t.Fatalf("expected dangling parent cleared, got %+v", locations)
	}
	assets := store.ListAssets()
	if len(assets) != 1 || assets[0].ID != "asset-1" {
		t.Fatalf("expected orphaned asset dropped, got %+v", assets)
	}
	if assets[0].ProjectID != nil || assets[0].AssigneeID != nil {
		t.Fatalf("expected dangling asset references cleared, got %+v", assets[0])
	}
	txns := store.ListTransactions()
	if len(txns) != 1 || txns[0].ID != "txn-1" || txns[0].UserID != nil {
		t.Fatalf("expected orphaned transaction dropped and user cleared, got %+v", txns)
	}
	if logs := store.ListMaintenanceLogs(); len(logs) != 0 {
		t.Fatalf("expected orphaned maintenance dropped, got %+v", logs)
	}
	docs := store.ListDocuments()
	if len(docs) != 1 || docs[0].UploadedByID != nil {
		t.Fatalf("expected uploader cleared, got %+v", docs)
	}
}

func TestListLocationsOrdering(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		for _, spec := range []struct {
			name  string
			order int
		}{
			{"Zeta", 0},
			{"Alpha", 1},
			{"Mid", 0},
		} {
			if _, err := tx.CreateLocation(Location{Name: spec.name, Kind: "room", DisplayOrder: spec.order}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	names := []string{}
	for _, loc := range store.ListLocations() {
		names = append(names, loc.Name)
	}
	want := []string{"Mid", "Zeta", "Alpha"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
}

func TestViewSeesCommittedState(t *testing.T) {
	store := NewStore(nil)
	loc := mustCreateLocation(t, store, "Visible")
	err := store.View(context.Background(), func(view TransactionView) error {
		if _, ok := view.FindLocation(loc.ID); !ok {
			t.Fatalf("expected location visible in view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestAssetRefsValidatedOnCreate(t *testing.T) {
	store := NewStore(nil)
	loc := mustCreateLocation(t, store, "Bench")
	missing := "missing"
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateAsset(Asset{Name: "Meter", Type: "tool", Status: domain.AssetStatusAvailable, LocationID: loc.ID, ProjectID: &missing})
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}
}
