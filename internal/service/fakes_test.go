package service

import (
	"context"
	"sort"
	"sync"

	"github.com/notebook/notebook/internal/identity"
	"github.com/notebook/notebook/internal/model"
	"github.com/notebook/notebook/internal/repository"
)

// memoryStore is an in-memory UserStore and NoteStore.
type memoryStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	notes map[string]*model.Note
	err   error
	calls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users: make(map[string]*model.User),
		notes: make(map[string]*model.Note),
	}
}

func (m *memoryStore) UpsertUser(ctx context.Context, ident model.Identity) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[ident.ID]
	if !ok {
		u = &model.User{ID: ident.ID}
		m.users[ident.ID] = u
	}
	u.Email = ident.Email
	return u, nil
}

func (m *memoryStore) CreateNote(ctx context.Context, note *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[note.AuthorID]; !ok {
		return repository.ErrConstraintViolation
	}
	if _, ok := m.notes[note.ID]; ok {
		return repository.ErrNoteExists
	}
	cp := *note
	m.notes[note.ID] = &cp
	return nil
}

func (m *memoryStore) owned(authorID string) []*model.Note {
	var out []*model.Note
	for _, n := range m.notes {
		if n.AuthorID == authorID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memoryStore) FindNewestNote(ctx context.Context, authorID string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	notes := m.owned(authorID)
	if len(notes) == 0 {
		return nil, repository.ErrNoteNotFound
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
	return notes[0], nil
}

func (m *memoryStore) GetNote(ctx context.Context, authorID, id string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	n, ok := m.notes[id]
	if !ok || n.AuthorID != authorID {
		return nil, repository.ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memoryStore) ListNotes(ctx context.Context, authorID string) ([]*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	notes := m.owned(authorID)
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
	return notes, nil
}

func (m *memoryStore) UpdateNoteText(ctx context.Context, authorID, id, text string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	n, ok := m.notes[id]
	if !ok || n.AuthorID != authorID {
		return nil, repository.ErrNoteNotFound
	}
	n.Text = text
	cp := *n
	return &cp, nil
}

func (m *memoryStore) DeleteNote(ctx context.Context, authorID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	n, ok := m.notes[id]
	if !ok || n.AuthorID != authorID {
		return repository.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

// mockProvider is a scripted identity.Provider.
type mockProvider struct {
	signInSession *identity.Session
	signInErr     error
	signUpResult  *identity.SignUpResult
	signUpErr     error
	signOutErr    error
	signOutToken  string
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.signInSession, nil
}

func (m *mockProvider) SignUp(ctx context.Context, email, password string) (*identity.SignUpResult, error) {
	if m.signUpErr != nil {
		return nil, m.signUpErr
	}
	return m.signUpResult, nil
}

func (m *mockProvider) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	return nil, identity.ErrInvalidToken
}

func (m *mockProvider) RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error) {
	return nil, identity.ErrInvalidToken
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	m.signOutToken = accessToken
	return m.signOutErr
}
