package memory

import (
	"sort"

	"trackcore/pkg/domain"
)

var _ domain.TransactionView = (*transactionView)(nil)

// transactionView exposes read-only, deterministic listings over a state
// copy. Listings are ordered so callers and rules see stable output.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) *transactionView {
	return &transactionView{state: state}
}

func (v *transactionView) ListLocations() []Location {
	out := make([]Location, 0, len(v.state.locations))
	for _, l := range v.state.locations {
		out = append(out, cloneLocation(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *transactionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *transactionView) ListAssets() []Asset {
	out := make([]Asset, 0, len(v.state.assets))
	for _, a := range v.state.assets {
		out = append(out, cloneAsset(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *transactionView) ListUsers() []User {
	out := make([]User, 0, len(v.state.users))
	for _, u := range v.state.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListTransactions returns history rows newest first.
func (v *transactionView) ListTransactions() []TransactionRecord {
	out := make([]TransactionRecord, 0, len(v.state.transactions))
	for _, t := range v.state.transactions {
		out = append(out, cloneTransaction(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListMaintenanceLogs returns maintenance rows newest first.
func (v *transactionView) ListMaintenanceLogs() []MaintenanceLog {
	out := make([]MaintenanceLog, 0, len(v.state.maintenance))
	for _, m := range v.state.maintenance {
		out = append(out, cloneMaintenance(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].PerformedAt.After(out[j].PerformedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *transactionView) ListDocuments() []Document {
	out := make([]Document, 0, len(v.state.documents))
	for _, d := range v.state.documents {
		out = append(out, cloneDocument(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *transactionView) FindLocation(id string) (Location, bool) {
	l, ok := v.state.locations[id]
	if !ok {
		return Location{}, false
	}
	return cloneLocation(l), true
}

func (v *transactionView) FindProject(id string) (Project, bool) {
	p, ok := v.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (v *transactionView) FindAsset(id string) (Asset, bool) {
	a, ok := v.state.assets[id]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(a), true
}

func (v *transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}
