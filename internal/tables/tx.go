package tables

import (
	"context"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/models"
)

// Tx stages record writes for one operation. Reads see staged records first,
// then the committed tables. Nothing touches the owned maps until every
// staged record has been persisted.
type Tx struct {
	t *Tables

	users       map[string]*models.User
	projects    map[string]*models.Project
	apps        map[string]*models.Application
	newApps     []string
	assignments map[string]*models.OfficerAssignment
	newAsgs     []string
	enquiries   map[string]*models.Enquiry
	newEnqs     []string

	deletedProjects  map[string]bool
	deletedEnquiries map[string]bool
}

// Update runs fn under the table lock with a staging transaction. When fn
// returns nil, every staged record is written through the store and then
// applied to the in-memory tables. When fn or any store write fails, the
// tables are left untouched and the error is returned.
func (t *Tables) Update(ctx context.Context, fn func(tx *Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := &Tx{
		t:                t,
		users:            make(map[string]*models.User),
		projects:         make(map[string]*models.Project),
		apps:             make(map[string]*models.Application),
		assignments:      make(map[string]*models.OfficerAssignment),
		enquiries:        make(map[string]*models.Enquiry),
		deletedProjects:  make(map[string]bool),
		deletedEnquiries: make(map[string]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.flush(ctx)
}

// ---- staged reads ----

func (tx *Tx) User(nric string) (*models.User, bool) {
	if u, ok := tx.users[nric]; ok {
		cp := *u
		return &cp, true
	}
	return tx.t.lookupUser(nric)
}

func (tx *Tx) Project(name string) (*models.Project, bool) {
	if tx.deletedProjects[name] {
		return nil, false
	}
	if p, ok := tx.projects[name]; ok {
		return p.Clone(), true
	}
	return tx.t.lookupProject(name)
}

func (tx *Tx) Application(id string) (*models.Application, bool) {
	if a, ok := tx.apps[id]; ok {
		return a.Clone(), true
	}
	return tx.t.lookupApplication(id)
}

func (tx *Tx) ActiveApplicationFor(nric string) (*models.Application, bool) {
	for _, a := range tx.apps {
		if a.ApplicantNRIC == nric && a.Active() {
			return a.Clone(), true
		}
	}
	if a, ok := tx.t.lookupActiveApplication(nric); ok {
		// A staged update may have moved the committed record to a
		// terminal status.
		if staged, stagedOK := tx.apps[a.ID]; stagedOK {
			if staged.Active() {
				return staged.Clone(), true
			}
			return nil, false
		}
		return a, true
	}
	return nil, false
}

func (tx *Tx) Assignment(id string) (*models.OfficerAssignment, bool) {
	if a, ok := tx.assignments[id]; ok {
		return a.Clone(), true
	}
	return tx.t.lookupAssignment(id)
}

// AssignmentsByOfficer merges staged and committed requests for one officer.
func (tx *Tx) AssignmentsByOfficer(nric string) []*models.OfficerAssignment {
	var out []*models.OfficerAssignment
	for _, id := range tx.t.asgOrder {
		a := tx.t.assignments[id]
		if a.OfficerNRIC != nric {
			continue
		}
		if staged, ok := tx.assignments[id]; ok {
			a = staged
		}
		out = append(out, a.Clone())
	}
	for _, id := range tx.newAsgs {
		if a := tx.assignments[id]; a.OfficerNRIC == nric {
			out = append(out, a.Clone())
		}
	}
	return out
}

// AssignmentsByProject merges staged and committed requests for one project.
func (tx *Tx) AssignmentsByProject(project string) []*models.OfficerAssignment {
	var out []*models.OfficerAssignment
	for _, id := range tx.t.asgOrder {
		a := tx.t.assignments[id]
		if a.ProjectName != project {
			continue
		}
		if staged, ok := tx.assignments[id]; ok {
			a = staged
		}
		out = append(out, a.Clone())
	}
	for _, id := range tx.newAsgs {
		if a := tx.assignments[id]; a.ProjectName == project {
			out = append(out, a.Clone())
		}
	}
	return out
}

// ApplicationsByProject merges staged and committed applications for one
// project.
func (tx *Tx) ApplicationsByProject(project string) []*models.Application {
	var out []*models.Application
	for _, id := range tx.t.appOrder {
		a := tx.t.apps[id]
		if a.ProjectName != project {
			continue
		}
		if staged, ok := tx.apps[id]; ok {
			a = staged
		}
		out = append(out, a.Clone())
	}
	for _, id := range tx.newApps {
		if a := tx.apps[id]; a.ProjectName == project {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (tx *Tx) Enquiry(id string) (*models.Enquiry, bool) {
	if tx.deletedEnquiries[id] {
		return nil, false
	}
	if e, ok := tx.enquiries[id]; ok {
		return e.Clone(), true
	}
	return tx.t.lookupEnquiry(id)
}

// EnquiriesByProject merges staged and committed enquiries for one project.
func (tx *Tx) EnquiriesByProject(project string) []*models.Enquiry {
	var out []*models.Enquiry
	for _, id := range tx.t.enqOrder {
		if tx.deletedEnquiries[id] {
			continue
		}
		e := tx.t.enquiries[id]
		if staged, ok := tx.enquiries[id]; ok {
			e = staged
		}
		if e.ProjectName != project {
			continue
		}
		out = append(out, e.Clone())
	}
	for _, id := range tx.newEnqs {
		if e := tx.enquiries[id]; e.ProjectName == project {
			out = append(out, e.Clone())
		}
	}
	return out
}

// ---- staged writes ----

func (tx *Tx) PutUser(u *models.User) {
	cp := *u
	tx.users[u.NRIC] = &cp
}

func (tx *Tx) PutProject(p *models.Project) {
	delete(tx.deletedProjects, p.Name)
	tx.projects[p.Name] = p.Clone()
}

func (tx *Tx) DeleteProject(name string) {
	delete(tx.projects, name)
	tx.deletedProjects[name] = true
}

func (tx *Tx) PutApplication(a *models.Application) {
	if _, staged := tx.apps[a.ID]; !staged {
		if _, committed := tx.t.apps[a.ID]; !committed {
			tx.newApps = append(tx.newApps, a.ID)
		}
	}
	tx.apps[a.ID] = a.Clone()
}

func (tx *Tx) PutAssignment(a *models.OfficerAssignment) {
	if _, staged := tx.assignments[a.ID]; !staged {
		if _, committed := tx.t.assignments[a.ID]; !committed {
			tx.newAsgs = append(tx.newAsgs, a.ID)
		}
	}
	tx.assignments[a.ID] = a.Clone()
}

func (tx *Tx) PutEnquiry(e *models.Enquiry) {
	delete(tx.deletedEnquiries, e.ID)
	if _, staged := tx.enquiries[e.ID]; !staged {
		if _, committed := tx.t.enquiries[e.ID]; !committed {
			tx.newEnqs = append(tx.newEnqs, e.ID)
		}
	}
	tx.enquiries[e.ID] = e.Clone()
}

func (tx *Tx) DeleteEnquiry(id string) {
	delete(tx.enquiries, id)
	for i, n := range tx.newEnqs {
		if n == id {
			tx.newEnqs = append(tx.newEnqs[:i], tx.newEnqs[i+1:]...)
			break
		}
	}
	tx.deletedEnquiries[id] = true
}

// flush persists every staged record, then applies them to the tables. The
// store is the durability boundary; a failed write leaves the in-memory state
// exactly as it was before the operation.
func (tx *Tx) flush(ctx context.Context) error {
	t := tx.t

	for _, u := range tx.users {
		if err := t.store.SaveUser(ctx, u); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}
	for _, p := range tx.projects {
		if err := t.store.SaveProject(ctx, p); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}
	for _, a := range tx.apps {
		if err := t.store.SaveApplication(ctx, a); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}
	for _, a := range tx.assignments {
		if err := t.store.SaveAssignment(ctx, a); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}
	for _, e := range tx.enquiries {
		if err := t.store.SaveEnquiry(ctx, e); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}
	for name := range tx.deletedProjects {
		if err := t.store.DeleteProject(ctx, name); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}
	for id := range tx.deletedEnquiries {
		if err := t.store.DeleteEnquiry(ctx, id); err != nil {
			return apperrors.NewStoreFailureError(err)
		}
	}

	for nric, u := range tx.users {
		t.users[nric] = u
	}
	for name, p := range tx.projects {
		t.projects[name] = p
	}
	for id, a := range tx.apps {
		t.apps[id] = a
	}
	t.appOrder = append(t.appOrder, tx.newApps...)
	for id, a := range tx.assignments {
		t.assignments[id] = a
	}
	t.asgOrder = append(t.asgOrder, tx.newAsgs...)
	for id, e := range tx.enquiries {
		t.enquiries[id] = e
	}
	t.enqOrder = append(t.enqOrder, tx.newEnqs...)
	for name := range tx.deletedProjects {
		delete(t.projects, name)
	}
	for id := range tx.deletedEnquiries {
		if _, ok := t.enquiries[id]; !ok {
			continue
		}
		delete(t.enquiries, id)
		for i, n := range t.enqOrder {
			if n == id {
				t.enqOrder = append(t.enqOrder[:i], t.enqOrder[i+1:]...)
				break
			}
		}
	}
	return nil
}
