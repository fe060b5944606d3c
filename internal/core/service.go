package core

import (
	"context"
	"fmt"
	"time"

	memory "trackcore/internal/infra/persistence/memory"
	"trackcore/pkg/domain"
)

// Service exposes the transactional operations of the entity layer. Every
// mutation runs inside a single store transaction so guard checks and the
// writes they protect cannot be interleaved with other writers.
type Service struct {
	store   PersistentStore
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	blobs   BlobStore
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		store:   store,
		clock:   options.clock,
		logger:  options.logger,
		audit:   options.audit,
		metrics: options.metrics,
		tracer:  options.tracer,
		blobs:   options.blobs,
	}
}

// NewInMemoryService creates a service with an in-memory store and the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run executes fn inside a store transaction with tracing, metrics, logging,
// and audit wired around it. entityID may point at a value populated by fn.
func (s *Service) run(ctx context.Context, operation string, entityID *string, fn func(tx Transaction) error) (Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)

	var id string
	if entityID != nil {
		id = *entityID
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "entity_id", id, "error", err)
		s.recordAuditError(ctx, operation, id, err, duration)
		return res, err
	}
	s.logger.Debug("operation committed", "operation", operation, "entity_id", id, "duration_ms", float64(duration)/float64(time.Millisecond))
	s.recordAuditSuccess(ctx, operation, id, duration)
	return res, nil
}

// LocationInput carries caller-supplied fields for creating a location.
type LocationInput struct {
	Name         string
	Kind         string
	ParentID     *string
	Description  *string
	DisplayOrder int
}

// CreateLocation persists a new location. A non-nil parent must resolve.
func (s *Service) CreateLocation(ctx context.Context, input LocationInput) (Location, Result, error) {
	if input.Name == "" {
		return Location{}, Result{}, domain.InvalidInput("", "location name is required")
	}
	var created Location
	res, err := s.run(ctx, "create_location", &created.ID, func(tx Transaction) error {
		if err := CanAttachParent(tx.Snapshot(), "", input.ParentID); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateLocation(Location{
			Name:         input.Name,
			Kind:         input.Kind,
			ParentID:     input.ParentID,
			Description:  input.Description,
			DisplayOrder: input.DisplayOrder,
		})
		return err
	})
	return created, res, err
}

// UpdateLocation mutates a location. Reparenting is validated so the tree
// stays acyclic; integrity failures roll the whole transaction back.
func (s *Service) UpdateLocation(ctx context.Context, id string, mutator func(*Location) error) (Location, Result, error) {
	var updated Location
	res, err := s.run(ctx, "update_location", &updated.ID, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateLocation(id, mutator)
		if err != nil {
			return err
		}
		return CanAttachParent(tx.Snapshot(), id, updated.ParentID)
	})
	return updated, res, err
}

// DeleteLocation removes a location after checking, in the same transaction,
// that it has no child locations and holds no assets. On success the deleted
// record's last snapshot is returned.
func (s *Service) DeleteLocation(ctx context.Context, id string) (Location, Result, error) {
	var deleted Location
	res, err := s.run(ctx, "delete_location", &id, func(tx Transaction) error {
		if err := CanDeleteLocation(tx.Snapshot(), id); err != nil {
			return err
		}
		loc, _ := tx.FindLocation(id)
		deleted = loc
		return tx.DeleteLocation(id)
	})
	if err != nil {
		return Location{}, res, err
	}
	return deleted, res, nil
}

// GetLocation fetches a location by id.
func (s *Service) GetLocation(_ context.Context, id string) (Location, error) {
	loc, ok := s.store.GetLocation(id)
	if !ok {
		return Location{}, domain.NotFound(domain.EntityLocation, id)
	}
	return loc, nil
}

// ListLocations returns all locations ordered by display order, then name.
func (s *Service) ListLocations(_ context.Context) []Location {
	return s.store.ListLocations()
}

// ListChildLocations returns the direct children of a location.
func (s *Service) ListChildLocations(_ context.Context, parentID string) []Location {
	var out []Location
	for _, loc := range s.store.ListLocations() {
		if loc.ParentID != nil && *loc.ParentID == parentID {
			out = append(out, loc)
		}
	}
	return out
}

// ProjectInput carries caller-supplied fields for creating a project. Dates
// arrive as strings and are parsed before anything is written.
type ProjectInput struct {
	Name         string
	Description  *string
	Status       string
	StartDate    *string
	EndDate      *string
	DisplayOrder int
}

// CreateProject persists a new project. Date parse failures reject the
// operation before any state changes.
func (s *Service) CreateProject(ctx context.Context, input ProjectInput) (Project, Result, error) {
	if input.Name == "" {
		return Project{}, Result{}, domain.InvalidInput("", "project name is required")
	}
	start, err := parseDate(input.StartDate)
	if err != nil {
		return Project{}, Result{}, err
	}
	end, err := parseDate(input.EndDate)
	if err != nil {
		return Project{}, Result{}, err
	}
	status := input.Status
	if status == "" {
		status = domain.ProjectStatusPlanned
	}
	var created Project
	res, runErr := s.run(ctx, "create_project", &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateProject(Project{
			Name:         input.Name,
			Description:  input.Description,
			Status:       status,
			StartDate:    start,
			EndDate:      end,
			DisplayOrder: input.DisplayOrder,
		})
		return err
	})
	return created, res, runErr
}

// UpdateProject mutates a project using the provided mutator.
func (s *Service) UpdateProject(ctx context.Context, id string, mutator func(*Project) error) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "update_project", &updated.ID, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProject(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteProject removes a project after checking, in the same transaction,
// that no asset is still assigned to it. On success the deleted record's
// last snapshot is returned.
func (s *Service) DeleteProject(ctx context.Context, id string) (Project, Result, error) {
	var deleted Project
	res, err := s.run(ctx, "delete_project", &id, func(tx Transaction) error {
		if err := CanDeleteProject(tx.Snapshot(), id); err != nil {
			return err
		}
		project, _ := tx.FindProject(id)
		deleted = project
		return tx.DeleteProject(id)
	})
	if err != nil {
		return Project{}, res, err
	}
	return deleted, res, nil
}

// GetProject fetches a project by id.
func (s *Service) GetProject(_ context.Context, id string) (Project, error) {
	project, ok := s.store.GetProject(id)
	if !ok {
		return Project{}, domain.NotFound(domain.EntityProject, id)
	}
	return project, nil
}

// ListProjects returns all projects ordered by display order, then name.
func (s *Service) ListProjects(_ context.Context) []Project {
	return s.store.ListProjects()
}

// CreateAsset persists a new asset placed in an existing location. Status
// defaults to available when unset.
func (s *Service) CreateAsset(ctx context.Context, asset Asset) (Asset, Result, error) {
	if asset.Name == "" {
		return Asset{}, Result{}, domain.InvalidInput("", "asset name is required")
	}
	if asset.Status == "" {
		asset.Status = domain.AssetStatusAvailable
	}
	var created Asset
	res, err := s.run(ctx, "create_asset", &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateAsset(asset)
		return err
	})
	return created, res, err
}

// UpdateAsset mutates an asset using the provided mutator.
func (s *Service) UpdateAsset(ctx context.Context, id string, mutator func(*Asset) error) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "update_asset", &updated.ID, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateAsset(id, mutator)
		return err
	})
	return updated, res, err
}

// MoveAsset relocates an asset to another existing location.
func (s *Service) MoveAsset(ctx context.Context, assetID, locationID string) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "move_asset", &updated.ID, func(tx Transaction) error {
		if _, ok := tx.FindLocation(locationID); !ok {
			return domain.NotFound(domain.EntityLocation, locationID)
		}
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.LocationID = locationID
			return nil
		})
		return err
	})
	return updated, res, err
}

// AssignAssetProject links an asset to a project, or detaches it when
// projectID is nil.
func (s *Service) AssignAssetProject(ctx context.Context, assetID string, projectID *string) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "assign_asset", &updated.ID, func(tx Transaction) error {
		if projectID != nil {
			if _, ok := tx.FindProject(*projectID); !ok {
				return domain.NotFound(domain.EntityProject, *projectID)
			}
		}
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.ProjectID = projectID
			return nil
		})
		return err
	})
	return updated, res, err
}

// AssignAssetUser assigns an asset to a user, or clears the assignment when
// userID is nil.
func (s *Service) AssignAssetUser(ctx context.Context, assetID string, userID *string) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "assign_asset", &updated.ID, func(tx Transaction) error {
		if userID != nil {
			if _, ok := tx.FindUser(*userID); !ok {
				return domain.NotFound(domain.EntityUser, *userID)
			}
		}
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.AssigneeID = userID
			return nil
		})
		return err
	})
	return updated, res, err
}

// CheckOutAsset records a check-out transaction and marks the asset checked
// out to the user, all in one transaction.
func (s *Service) CheckOutAsset(ctx context.Context, assetID, userID string, dueDate *time.Time, notes *string) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "checkout_asset", &updated.ID, func(tx Transaction) error {
		if _, ok := tx.FindUser(userID); !ok {
			return domain.NotFound(domain.EntityUser, userID)
		}
		if _, err := tx.CreateTransactionRecord(TransactionRecord{
			AssetID:    assetID,
			UserID:     &userID,
			Type:       domain.TransactionCheckOut,
			OccurredAt: s.clock.Now(),
			DueDate:    dueDate,
			Notes:      notes,
		}); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.Status = domain.AssetStatusCheckedOut
			a.AssigneeID = &userID
			return nil
		})
		return err
	})
	return updated, res, err
}

// CheckInAsset records a check-in transaction, clears the assignment, and
// marks the asset available again.
func (s *Service) CheckInAsset(ctx context.Context, assetID string, notes *string) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "checkin_asset", &updated.ID, func(tx Transaction) error {
		current, ok := tx.FindAsset(assetID)
		if !ok {
			return domain.NotFound(domain.EntityAsset, assetID)
		}
		if _, err := tx.CreateTransactionRecord(TransactionRecord{
			AssetID:    assetID,
			UserID:     current.AssigneeID,
			Type:       domain.TransactionCheckIn,
			OccurredAt: s.clock.Now(),
			Notes:      notes,
		}); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.Status = domain.AssetStatusAvailable
			a.AssigneeID = nil
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteAsset removes an asset along with its history rows and documents.
// Blob contents backing deleted documents are cleaned up after commit.
func (s *Service) DeleteAsset(ctx context.Context, id string) (Result, error) {
	var blobKeys []string
	res, err := s.run(ctx, "delete_asset", &id, func(tx Transaction) error {
		blobKeys = blobKeys[:0]
		if _, ok := tx.FindAsset(id); !ok {
			return domain.NotFound(domain.EntityAsset, id)
		}
		view := tx.Snapshot()
		for _, record := range view.ListTransactions() {
			if record.AssetID == id {
				if err := tx.DeleteTransactionRecord(record.ID); err != nil {
					return err
				}
			}
		}
		for _, entry := range view.ListMaintenanceLogs() {
			if entry.AssetID == id {
				if err := tx.DeleteMaintenanceLog(entry.ID); err != nil {
					return err
				}
			}
		}
		for _, doc := range view.ListDocuments() {
			if doc.AssetID == id {
				if err := tx.DeleteDocument(doc.ID); err != nil {
					return err
				}
				blobKeys = append(blobKeys, doc.BlobKey)
			}
		}
		return tx.DeleteAsset(id)
	})
	if err != nil {
		return res, err
	}
	s.removeBlobs(ctx, blobKeys)
	return res, nil
}

// AssetDetail aggregates an asset with its resolved references, histories,
// and documents.
type AssetDetail struct {
	Asset
	Location        Location
	Project         *Project
	Assignee        *User
	Transactions    []TransactionRecord
	MaintenanceLogs []MaintenanceLog
	Documents       []Document
}

// GetAsset fetches an asset with location, assignment, history rows, and
// document metadata resolved from one consistent snapshot.
func (s *Service) GetAsset(ctx context.Context, id string) (AssetDetail, error) {
	var detail AssetDetail
	err := s.store.View(ctx, func(view TransactionView) error {
		asset, ok := view.FindAsset(id)
		if !ok {
			return domain.NotFound(domain.EntityAsset, id)
		}
		detail.Asset = asset
		if loc, ok := view.FindLocation(asset.LocationID); ok {
			detail.Location = loc
		}
		if asset.ProjectID != nil {
			if project, ok := view.FindProject(*asset.ProjectID); ok {
				detail.Project = &project
			}
		}
		if asset.AssigneeID != nil {
			if user, ok := view.FindUser(*asset.AssigneeID); ok {
				detail.Assignee = &user
			}
		}
		for _, record := range view.ListTransactions() {
			if record.AssetID == id {
				detail.Transactions = append(detail.Transactions, record)
			}
		}
		for _, entry := range view.ListMaintenanceLogs() {
			if entry.AssetID == id {
				detail.MaintenanceLogs = append(detail.MaintenanceLogs, entry)
			}
		}
		for _, doc := range view.ListDocuments() {
			if doc.AssetID == id {
				detail.Documents = append(detail.Documents, doc)
			}
		}
		return nil
	})
	if err != nil {
		return AssetDetail{}, err
	}
	return detail, nil
}

// AssetSummary denormalizes an asset with the display names of its
// references for listing surfaces.
type AssetSummary struct {
	Asset
	LocationName string
	ProjectName  *string
	AssigneeName *string
}

// ListAssets returns all assets with location, project, and assignee names
// resolved from one consistent snapshot.
func (s *Service) ListAssets(ctx context.Context) ([]AssetSummary, error) {
	var out []AssetSummary
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, asset := range view.ListAssets() {
			summary := AssetSummary{Asset: asset}
			if loc, ok := view.FindLocation(asset.LocationID); ok {
				summary.LocationName = loc.Name
			}
			if asset.ProjectID != nil {
				if project, ok := view.FindProject(*asset.ProjectID); ok {
					name := project.Name
					summary.ProjectName = &name
				}
			}
			if asset.AssigneeID != nil {
				if user, ok := view.FindUser(*asset.AssigneeID); ok {
					name := user.Name
					summary.AssigneeName = &name
				}
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListLocationAssets returns the assets placed directly in a location.
func (s *Service) ListLocationAssets(_ context.Context, locationID string) []Asset {
	var out []Asset
	for _, asset := range s.store.ListAssets() {
		if asset.LocationID == locationID {
			out = append(out, asset)
		}
	}
	return out
}

// CreateUser persists a new user.
func (s *Service) CreateUser(ctx context.Context, user User) (User, Result, error) {
	if user.Name == "" {
		return User{}, Result{}, domain.InvalidInput("", "user name is required")
	}
	var created User
	res, err := s.run(ctx, "create_user", &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateUser(user)
		return err
	})
	return created, res, err
}

// UpdateUser mutates a user using the provided mutator.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*User) error) (User, Result, error) {
	var updated User
	res, err := s.run(ctx, "update_user", &updated.ID, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateUser(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteUser removes a user. Assets still assigned to the user block the
// commit through the reference rules.
func (s *Service) DeleteUser(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_user", &id, func(tx Transaction) error {
		return tx.DeleteUser(id)
	})
}

// GetUser fetches a user by id.
func (s *Service) GetUser(_ context.Context, id string) (User, error) {
	user, ok := s.store.GetUser(id)
	if !ok {
		return User{}, domain.NotFound(domain.EntityUser, id)
	}
	return user, nil
}

// ListUsers returns all users ordered by name.
func (s *Service) ListUsers(_ context.Context) []User {
	return s.store.ListUsers()
}

// RecordTransaction appends a check-in/check-out history row for an asset.
func (s *Service) RecordTransaction(ctx context.Context, record TransactionRecord) (TransactionRecord, Result, error) {
	if record.Type != domain.TransactionCheckOut && record.Type != domain.TransactionCheckIn {
		return TransactionRecord{}, Result{}, domain.InvalidInput("", fmt.Sprintf("unknown transaction type %q", record.Type))
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = s.clock.Now()
	}
	var created TransactionRecord
	res, err := s.run(ctx, "record_transaction", &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateTransactionRecord(record)
		return err
	})
	return created, res, err
}

// RecordMaintenance appends a maintenance history row for an asset.
func (s *Service) RecordMaintenance(ctx context.Context, entry MaintenanceLog) (MaintenanceLog, Result, error) {
	if entry.Description == "" {
		return MaintenanceLog{}, Result{}, domain.InvalidInput("", "maintenance description is required")
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = s.clock.Now()
	}
	var created MaintenanceLog
	res, err := s.run(ctx, "record_maintenance", &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateMaintenanceLog(entry)
		return err
	})
	return created, res, err
}

// ListAssetTransactions returns the history rows for an asset, newest first.
func (s *Service) ListAssetTransactions(_ context.Context, assetID string) []TransactionRecord {
	var out []TransactionRecord
	for _, record := range s.store.ListTransactions() {
		if record.AssetID == assetID {
			out = append(out, record)
		}
	}
	return out
}

// ListAssetMaintenance returns the maintenance rows for an asset, newest first.
func (s *Service) ListAssetMaintenance(_ context.Context, assetID string) []MaintenanceLog {
	var out []MaintenanceLog
	for _, entry := range s.store.ListMaintenanceLogs() {
		if entry.AssetID == assetID {
			out = append(out, entry)
		}
	}
	return out
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", *value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, *value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, domain.InvalidInput(domain.ReasonInvalidDate, fmt.Sprintf("invalid date %q", *value))
}
