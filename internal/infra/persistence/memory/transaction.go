package memory

import (
	"fmt"

	"time"

	"trackcore/pkg/domain"
)

var _ domain.Transaction = (*transaction)(nil)

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

func (t *transaction) Snapshot() TransactionView {
	return newTransactionView(&t.state)
}

func (t *transaction) recordChange(entity domain.EntityType, action domain.Action, before, after any) {
	t.changes = append(t.changes, Change{Entity: entity, Action: action, Before: before, After: after})
}

func (t *transaction) stampNew(base *domain.Base) {
	if base.ID == "" {
		base.ID = t.store.newID()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = t.now
	}
	base.UpdatedAt = t.now
}

// CreateLocation inserts a location. A non-nil parent must already exist.
func (t *transaction) CreateLocation(location Location) (Location, error) {
	t.stampNew(&location.Base)
	if _, exists := t.state.locations[location.ID]; exists {
		return Location{}, fmt.Errorf("location %q already exists", location.ID)
	}
	if location.ParentID != nil {
		if _, ok := t.state.locations[*location.ParentID]; !ok {
			return Location{}, domain.NotFound(domain.EntityLocation, *location.ParentID)
		}
	}
	t.state.locations[location.ID] = cloneLocation(location)
	t.recordChange(domain.EntityLocation, domain.ActionCreate, nil, cloneLocation(location))
	return location, nil
}

// UpdateLocation applies mutator to an existing location.
func (t *transaction) UpdateLocation(id string, mutator func(*Location) error) (Location, error) {
	current, ok := t.state.locations[id]
	if !ok {
		return Location{}, domain.NotFound(domain.EntityLocation, id)
	}
	before := cloneLocation(current)
	updated := cloneLocation(current)
	if err := mutator(&updated); err != nil {
		return Location{}, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = t.now
	if updated.ParentID != nil {
		if _, ok := t.state.locations[*updated.ParentID]; !ok {
			return Location{}, domain.NotFound(domain.EntityLocation, *updated.ParentID)
		}
	}
	t.state.locations[id] = cloneLocation(updated)
	t.recordChange(domain.EntityLocation, domain.ActionUpdate, before, cloneLocation(updated))
	return updated, nil
}

// DeleteLocation removes a location by id.
func (t *transaction) DeleteLocation(id string) error {
	current, ok := t.state.locations[id]
	if !ok {
		return domain.NotFound(domain.EntityLocation, id)
	}
	delete(t.state.locations, id)
	t.recordChange(domain.EntityLocation, domain.ActionDelete, cloneLocation(current), nil)
	return nil
}

// CreateProject inserts a project.
func (t *transaction) CreateProject(project Project) (Project, error) {
	t.stampNew(&project.Base)
	if _, exists := t.state.projects[project.ID]; exists {
		return Project{}, fmt.Errorf("project %q already exists", project.ID)
	}
	t.state.projects[project.ID] = cloneProject(project)
	t.recordChange(domain.EntityProject, domain.ActionCreate, nil, cloneProject(project))
	return project, nil
}

// UpdateProject applies mutator to an existing project.
func (t *transaction) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	current, ok := t.state.projects[id]
	if !ok {
		return Project{}, domain.NotFound(domain.EntityProject, id)
	}
	before := cloneProject(current)
	updated := cloneProject(current)
	if err := mutator(&updated); err != nil {
		return Project{}, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = t.now
	t.state.projects[id] = cloneProject(updated)
	t.recordChange(domain.EntityProject, domain.ActionUpdate, before, cloneProject(updated))
	return updated, nil
}

// DeleteProject removes a project by id.
func (t *transaction) DeleteProject(id string) error {
	current, ok := t.state.projects[id]
	if !ok {
		return domain.NotFound(domain.EntityProject, id)
	}
	delete(t.state.projects, id)
	t.recordChange(domain.EntityProject, domain.ActionDelete, cloneProject(current), nil)
	return nil
}

// CreateAsset inserts an asset. The target location and any referenced
// project or user must already exist.
func (t *transaction) CreateAsset(asset Asset) (Asset, error) {
	t.stampNew(&asset.Base)
	if _, exists := t.state.assets[asset.ID]; exists {
		return Asset{}, fmt.Errorf("asset %q already exists", asset.ID)
	}
	if err := t.checkAssetRefs(asset); err != nil {
		return Asset{}, err
	}
	t.state.assets[asset.ID] = cloneAsset(asset)
	t.recordChange(domain.EntityAsset, domain.ActionCreate, nil, cloneAsset(asset))
	return asset, nil
}

func (t *transaction) checkAssetRefs(asset Asset) error {
	if _, ok := t.state.locations[asset.LocationID]; !ok {
		return domain.NotFound(domain.EntityLocation, asset.LocationID)
	}
	if asset.ProjectID != nil {
		if _, ok := t.state.projects[*asset.ProjectID]; !ok {
			return domain.NotFound(domain.EntityProject, *asset.ProjectID)
		}
	}
	if asset.AssigneeID != nil {
		if _, ok := t.state.users[*asset.AssigneeID]; !ok {
			return domain.NotFound(domain.EntityUser, *asset.AssigneeID)
		}
	}
	return nil
}

// UpdateAsset applies mutator to an existing asset.
func (t *transaction) UpdateAsset(id string, mutator func(*Asset) error) (Asset, error) {
	current, ok := t.state.assets[id]
	if !ok {
		return Asset{}, domain.NotFound(domain.EntityAsset, id)
	}
	before := cloneAsset(current)
	updated := cloneAsset(current)
	if err := mutator(&updated); err != nil {
		return Asset{}, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = t.now
	if err := t.checkAssetRefs(updated); err != nil {
		return Asset{}, err
	}
	t.state.assets[id] = cloneAsset(updated)
	t.recordChange(domain.EntityAsset, domain.ActionUpdate, before, cloneAsset(updated))
	return updated, nil
}

// DeleteAsset removes an asset by id. History rows and documents referencing
// it are the caller's responsibility to clean up first.
func (t *transaction) DeleteAsset(id string) error {
	current, ok := t.state.assets[id]
	if !ok {
		return domain.NotFound(domain.EntityAsset, id)
	}
	delete(t.state.assets, id)
	t.recordChange(domain.EntityAsset, domain.ActionDelete, cloneAsset(current), nil)
	return nil
}

// CreateUser inserts a user.
func (t *transaction) CreateUser(user User) (User, error) {
	t.stampNew(&user.Base)
	if _, exists := t.state.users[user.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", user.ID)
	}
	t.state.users[user.ID] = user
	t.recordChange(domain.EntityUser, domain.ActionCreate, nil, user)
	return user, nil
}

// UpdateUser applies mutator to an existing user.
func (t *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := t.state.users[id]
	if !ok {
		return User{}, domain.NotFound(domain.EntityUser, id)
	}
	before := current
	updated := current
	if err := mutator(&updated); err != nil {
		return User{}, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = t.now
	t.state.users[id] = updated
	t.recordChange(domain.EntityUser, domain.ActionUpdate, before, updated)
	return updated, nil
}

// DeleteUser removes a user by id.
func (t *transaction) DeleteUser(id string) error {
	current, ok := t.state.users[id]
	if !ok {
		return domain.NotFound(domain.EntityUser, id)
	}
	delete(t.state.users, id)
	t.recordChange(domain.EntityUser, domain.ActionDelete, current, nil)
	return nil
}

// CreateTransactionRecord inserts a check-in/check-out history row.
func (t *transaction) CreateTransactionRecord(record TransactionRecord) (TransactionRecord, error) {
	t.stampNew(&record.Base)
	if _, exists := t.state.transactions[record.ID]; exists {
		return TransactionRecord{}, fmt.Errorf("transaction %q already exists", record.ID)
	}
	if _, ok := t.state.assets[record.AssetID]; !ok {
		return TransactionRecord{}, domain.NotFound(domain.EntityAsset, record.AssetID)
	}
	if record.UserID != nil {
		if _, ok := t.state.users[*record.UserID]; !ok {
			return TransactionRecord{}, domain.NotFound(domain.EntityUser, *record.UserID)
		}
	}
	t.state.transactions[record.ID] = cloneTransaction(record)
	t.recordChange(domain.EntityTransaction, domain.ActionCreate, nil, cloneTransaction(record))
	return record, nil
}

// DeleteTransactionRecord removes a history row by id.
func (t *transaction) DeleteTransactionRecord(id string) error {
	current, ok := t.state.transactions[id]
	if !ok {
		return domain.NotFound(domain.EntityTransaction, id)
	}
	delete(t.state.transactions, id)
	t.recordChange(domain.EntityTransaction, domain.ActionDelete, cloneTransaction(current), nil)
	return nil
}

// CreateMaintenanceLog inserts a maintenance history row.
func (t *transaction) CreateMaintenanceLog(entry MaintenanceLog) (MaintenanceLog, error) {
	t.stampNew(&entry.Base)
	if _, exists := t.state.maintenance[entry.ID]; exists {
		return MaintenanceLog{}, fmt.Errorf("maintenance log %q already exists", entry.ID)
	}
	if _, ok := t.state.assets[entry.AssetID]; !ok {
		return MaintenanceLog{}, domain.NotFound(domain.EntityAsset, entry.AssetID)
	}
	if entry.PerformedByID != nil {
		if _, ok := t.state.users[*entry.PerformedByID]; !ok {
			return MaintenanceLog{}, domain.NotFound(domain.EntityUser, *entry.PerformedByID)
		}
	}
	t.state.maintenance[entry.ID] = cloneMaintenance(entry)
	t.recordChange(domain.EntityMaintenanceLog, domain.ActionCreate, nil, cloneMaintenance(entry))
	return entry, nil
}

// DeleteMaintenanceLog removes a maintenance row by id.
func (t *transaction) DeleteMaintenanceLog(id string) error {
	current, ok := t.state.maintenance[id]
	if !ok {
		return domain.NotFound(domain.EntityMaintenanceLog, id)
	}
	delete(t.state.maintenance, id)
	t.recordChange(domain.EntityMaintenanceLog, domain.ActionDelete, cloneMaintenance(current), nil)
	return nil
}

// CreateDocument inserts document metadata for an attached file.
func (t *transaction) CreateDocument(doc Document) (Document, error) {
	t.stampNew(&doc.Base)
	if _, exists := t.state.documents[doc.ID]; exists {
		return Document{}, fmt.Errorf("document %q already exists", doc.ID)
	}
	if _, ok := t.state.assets[doc.AssetID]; !ok {
		return Document{}, domain.NotFound(domain.EntityAsset, doc.AssetID)
	}
	if doc.UploadedByID != nil {
		if _, ok := t.state.users[*doc.UploadedByID]; !ok {
			return Document{}, domain.NotFound(domain.EntityUser, *doc.UploadedByID)
		}
	}
	t.state.documents[doc.ID] = cloneDocument(doc)
	t.recordChange(domain.EntityDocument, domain.ActionCreate, nil, cloneDocument(doc))
	return doc, nil
}

// DeleteDocument removes document metadata by id.
func (t *transaction) DeleteDocument(id string) error {
	current, ok := t.state.documents[id]
	if !ok {
		return domain.NotFound(domain.EntityDocument, id)
	}
	delete(t.state.documents, id)
	t.recordChange(domain.EntityDocument, domain.ActionDelete, cloneDocument(current), nil)
	return nil
}

func (t *transaction) FindLocation(id string) (Location, bool) {
	l, ok := t.state.locations[id]
	if !ok {
		return Location{}, false
	}
	return cloneLocation(l), true
}

func (t *transaction) FindProject(id string) (Project, bool) {
	p, ok := t.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (t *transaction) FindAsset(id string) (Asset, bool) {
	a, ok := t.state.assets[id]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(a), true
}

func (t *transaction) FindUser(id string) (User, bool) {
	u, ok := t.state.users[id]
	return u, ok
}

func (t *transaction) FindDocument(id string) (Document, bool) {
	d, ok := t.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}
