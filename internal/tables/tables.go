// Package tables owns the in-memory record tables the allocation core works
// against. All mutations go through Update, which stages copies, writes them
// through the persistence collaborator, and only then applies them to the
// owned maps. Operations are validate-then-apply, never apply-then-rollback.
package tables

import (
	"context"
	"sort"
	"sync"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
	"bto-allocation/internal/store"
)

// Tables indexes every record by id and preserves insertion order for the
// list views.
type Tables struct {
	mu    sync.RWMutex
	store store.Store
	log   logger.Logger

	users       map[string]*models.User
	projects    map[string]*models.Project
	apps        map[string]*models.Application
	appOrder    []string
	assignments map[string]*models.OfficerAssignment
	asgOrder    []string
	enquiries   map[string]*models.Enquiry
	enqOrder    []string
}

func New(st store.Store, log logger.Logger) *Tables {
	return &Tables{
		store:       st,
		log:         log.WithFields(map[string]interface{}{"component": "tables"}),
		users:       make(map[string]*models.User),
		projects:    make(map[string]*models.Project),
		apps:        make(map[string]*models.Application),
		assignments: make(map[string]*models.OfficerAssignment),
		enquiries:   make(map[string]*models.Enquiry),
	}
}

// Hydrate loads every table from the store, replacing current contents.
func (t *Tables) Hydrate(ctx context.Context) error {
	users, err := t.store.LoadUsers(ctx)
	if err != nil {
		return apperrors.NewStoreFailureError(err)
	}
	projects, err := t.store.LoadProjects(ctx)
	if err != nil {
		return apperrors.NewStoreFailureError(err)
	}
	apps, err := t.store.LoadApplications(ctx)
	if err != nil {
		return apperrors.NewStoreFailureError(err)
	}
	asgs, err := t.store.LoadAssignments(ctx)
	if err != nil {
		return apperrors.NewStoreFailureError(err)
	}
	enqs, err := t.store.LoadEnquiries(ctx)
	if err != nil {
		return apperrors.NewStoreFailureError(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.users = make(map[string]*models.User, len(users))
	for _, u := range users {
		t.users[u.NRIC] = u
	}
	t.projects = make(map[string]*models.Project, len(projects))
	for _, p := range projects {
		t.projects[p.Name] = p
	}
	t.apps = make(map[string]*models.Application, len(apps))
	t.appOrder = t.appOrder[:0]
	for _, a := range apps {
		t.apps[a.ID] = a
		t.appOrder = append(t.appOrder, a.ID)
	}
	t.assignments = make(map[string]*models.OfficerAssignment, len(asgs))
	t.asgOrder = t.asgOrder[:0]
	for _, a := range asgs {
		t.assignments[a.ID] = a
		t.asgOrder = append(t.asgOrder, a.ID)
	}
	t.enquiries = make(map[string]*models.Enquiry, len(enqs))
	t.enqOrder = t.enqOrder[:0]
	for _, e := range enqs {
		t.enquiries[e.ID] = e
		t.enqOrder = append(t.enqOrder, e.ID)
	}

	t.log.Info("tables hydrated", map[string]interface{}{
		"users":        len(users),
		"projects":     len(projects),
		"applications": len(apps),
		"assignments":  len(asgs),
		"enquiries":    len(enqs),
	})
	return nil
}

// ---- read views (copies) ----

func (t *Tables) User(nric string) (*models.User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupUser(nric)
}

func (t *Tables) Project(name string) (*models.Project, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupProject(name)
}

// Projects returns all projects sorted by name.
func (t *Tables) Projects() []*models.Project {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*models.Project, 0, len(t.projects))
	for _, p := range t.projects {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *Tables) Application(id string) (*models.Application, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupApplication(id)
}

// Applications returns every application in insertion order.
func (t *Tables) Applications() []*models.Application {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*models.Application, 0, len(t.appOrder))
	for _, id := range t.appOrder {
		out = append(out, t.apps[id].Clone())
	}
	return out
}

// ApplicationsByProject filters applications for one project, insertion order.
func (t *Tables) ApplicationsByProject(project string) []*models.Application {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*models.Application
	for _, id := range t.appOrder {
		if a := t.apps[id]; a.ProjectName == project {
			out = append(out, a.Clone())
		}
	}
	return out
}

// ActiveApplicationFor returns the applicant's single non-terminal
// application, when one exists.
func (t *Tables) ActiveApplicationFor(nric string) (*models.Application, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupActiveApplication(nric)
}

func (t *Tables) Assignment(id string) (*models.OfficerAssignment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupAssignment(id)
}

// AssignmentsByOfficer returns the officer's requests in insertion order.
func (t *Tables) AssignmentsByOfficer(nric string) []*models.OfficerAssignment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*models.OfficerAssignment
	for _, id := range t.asgOrder {
		if a := t.assignments[id]; a.OfficerNRIC == nric {
			out = append(out, a.Clone())
		}
	}
	return out
}

// AssignmentsByProject returns a project's requests in insertion order.
func (t *Tables) AssignmentsByProject(project string) []*models.OfficerAssignment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*models.OfficerAssignment
	for _, id := range t.asgOrder {
		if a := t.assignments[id]; a.ProjectName == project {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (t *Tables) Enquiry(id string) (*models.Enquiry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupEnquiry(id)
}

// Enquiries returns every enquiry in insertion order.
func (t *Tables) Enquiries() []*models.Enquiry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*models.Enquiry, 0, len(t.enqOrder))
	for _, id := range t.enqOrder {
		out = append(out, t.enquiries[id].Clone())
	}
	return out
}

// EnquiriesByApplicant filters enquiries for one author, insertion order.
func (t *Tables) EnquiriesByApplicant(nric string) []*models.Enquiry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*models.Enquiry
	for _, id := range t.enqOrder {
		if e := t.enquiries[id]; e.ApplicantNRIC == nric {
			out = append(out, e.Clone())
		}
	}
	return out
}

// ---- unlocked lookups shared by views and transactions ----

func (t *Tables) lookupUser(nric string) (*models.User, bool) {
	u, ok := t.users[nric]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (t *Tables) lookupProject(name string) (*models.Project, bool) {
	p, ok := t.projects[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (t *Tables) lookupApplication(id string) (*models.Application, bool) {
	a, ok := t.apps[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (t *Tables) lookupActiveApplication(nric string) (*models.Application, bool) {
	for _, id := range t.appOrder {
		if a := t.apps[id]; a.ApplicantNRIC == nric && a.Active() {
			return a.Clone(), true
		}
	}
	return nil, false
}

func (t *Tables) lookupAssignment(id string) (*models.OfficerAssignment, bool) {
	a, ok := t.assignments[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (t *Tables) lookupEnquiry(id string) (*models.Enquiry, bool) {
	e, ok := t.enquiries[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}
