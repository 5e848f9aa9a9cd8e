// internal/store/memory.go
package store

import (
	"context"
	"sync"

	"bto-allocation/internal/models"
)

// Memory is an in-process Store used by tests and the single-session mode.
// Records are kept in insertion order so load-time ordering matches the
// postgres implementation.
type Memory struct {
	mu          sync.Mutex
	users       map[string]*models.User
	userOrder   []string
	projects    map[string]*models.Project
	projOrder   []string
	apps        map[string]*models.Application
	appOrder    []string
	assignments map[string]*models.OfficerAssignment
	asgOrder    []string
	enquiries   map[string]*models.Enquiry
	enqOrder    []string
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*models.User),
		projects:    make(map[string]*models.Project),
		apps:        make(map[string]*models.Application),
		assignments: make(map[string]*models.OfficerAssignment),
		enquiries:   make(map[string]*models.Enquiry),
	}
}

func (m *Memory) LoadUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		u := *m.users[id]
		out = append(out, &u)
	}
	return out, nil
}

func (m *Memory) SaveUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	if _, ok := m.users[u.NRIC]; !ok {
		m.userOrder = append(m.userOrder, u.NRIC)
	}
	m.users[u.NRIC] = &cp
	return nil
}

func (m *Memory) LoadProjects(ctx context.Context) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Project, 0, len(m.projOrder))
	for _, name := range m.projOrder {
		out = append(out, m.projects[name].Clone())
	}
	return out, nil
}

func (m *Memory) SaveProject(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.Name]; !ok {
		m.projOrder = append(m.projOrder, p.Name)
	}
	m.projects[p.Name] = p.Clone()
	return nil
}

func (m *Memory) DeleteProject(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, name)
	for i, n := range m.projOrder {
		if n == name {
			m.projOrder = append(m.projOrder[:i], m.projOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) LoadApplications(ctx context.Context) ([]*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Application, 0, len(m.appOrder))
	for _, id := range m.appOrder {
		out = append(out, m.apps[id].Clone())
	}
	return out, nil
}

func (m *Memory) SaveApplication(ctx context.Context, a *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[a.ID]; !ok {
		m.appOrder = append(m.appOrder, a.ID)
	}
	m.apps[a.ID] = a.Clone()
	return nil
}

func (m *Memory) LoadAssignments(ctx context.Context) ([]*models.OfficerAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.OfficerAssignment, 0, len(m.asgOrder))
	for _, id := range m.asgOrder {
		out = append(out, m.assignments[id].Clone())
	}
	return out, nil
}

func (m *Memory) SaveAssignment(ctx context.Context, a *models.OfficerAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		m.asgOrder = append(m.asgOrder, a.ID)
	}
	m.assignments[a.ID] = a.Clone()
	return nil
}

func (m *Memory) LoadEnquiries(ctx context.Context) ([]*models.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Enquiry, 0, len(m.enqOrder))
	for _, id := range m.enqOrder {
		out = append(out, m.enquiries[id].Clone())
	}
	return out, nil
}

func (m *Memory) SaveEnquiry(ctx context.Context, e *models.Enquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enquiries[e.ID]; !ok {
		m.enqOrder = append(m.enqOrder, e.ID)
	}
	m.enquiries[e.ID] = e.Clone()
	return nil
}

func (m *Memory) DeleteEnquiry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.enquiries, id)
	for i, n := range m.enqOrder {
		if n == id {
			m.enqOrder = append(m.enqOrder[:i], m.enqOrder[i+1:]...)
			break
		}
	}
	return nil
}
