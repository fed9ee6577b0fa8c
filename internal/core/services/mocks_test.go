package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jupiterclapton/post-service/internal/core/domain"
	"github.com/jupiterclapton/post-service/internal/core/ports"
)

// --- Mocks testify ---

type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Begin(ctx context.Context) (ports.UnitOfWork, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.UnitOfWork), args.Error(1)
}

type MockUnitOfWork struct {
	mock.Mock
	posts  *MockPostRepository
	users  *MockUserRepository
	events *MockOutboxRepository
}

func newMockUnitOfWork() *MockUnitOfWork {
	uow := &MockUnitOfWork{
		posts:  new(MockPostRepository),
		users:  new(MockUserRepository),
		events: new(MockOutboxRepository),
	}
	uow.On("Rollback", mock.Anything).Return(nil).Maybe()
	return uow
}

func (m *MockUnitOfWork) Posts() ports.PostRepository    { return m.posts }
func (m *MockUnitOfWork) Users() ports.UserRepository    { return m.users }
func (m *MockUnitOfWork) Events() ports.OutboxRepository { return m.events }

func (m *MockUnitOfWork) Commit(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Add(ctx context.Context, post *domain.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *MockPostRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Post, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Post), args.Error(1)
}

func (m *MockPostRepository) Remove(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Add(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

type MockPostCache struct {
	mock.Mock
}

func (m *MockPostCache) Get(ctx context.Context, postID string) (*domain.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *MockPostCache) Set(ctx context.Context, post *domain.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostCache) Invalidate(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

type MockBrokerPublisher struct {
	mock.Mock
}

func (m *MockBrokerPublisher) PublishRaw(ctx context.Context, topic, key string, payload []byte) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

// --- Fake en mémoire (scénarios de bout en bout) ---

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Post, error) { return nil, nil }
func (noopCache) Set(context.Context, *domain.Post) error           { return nil }
func (noopCache) Invalidate(context.Context, string) error          { return nil }

// memoryCache reproduit la sémantique du cache Redis : Set ne remplace jamais une
// entrée existante et Invalidate pose une tombe.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Post
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*domain.Post{}}
}

func (c *memoryCache) Get(_ context.Context, postID string) (*domain.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[postID]
	if !ok {
		return nil, nil
	}
	if p == nil {
		return nil, domain.NotFound("post %s was not found.", postID)
	}
	cp := *p
	return &cp, nil
}

func (c *memoryCache) Set(_ context.Context, post *domain.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[post.ID]; !ok {
		cp := *post
		c.entries[post.ID] = &cp
	}
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, postID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[postID] = nil
	return nil
}

// memoryStore applique les écritures d'une UnitOfWork au Commit seulement.
type memoryStore struct {
	mu        sync.Mutex
	posts     map[string]domain.Post
	users     map[string]domain.User
	published []domain.Event
	commits   int
	// afterFindPost s'exécute une fois, juste après la prochaine lecture d'un post.
	afterFindPost func(postID string)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{posts: map[string]domain.Post{}, users: map[string]domain.User{}}
}

func (s *memoryStore) Begin(context.Context) (ports.UnitOfWork, error) {
	return &memoryUnitOfWork{store: s}, nil
}

type memoryUnitOfWork struct {
	store  *memoryStore
	ops    []func() int64
	events []domain.Event
}

func (u *memoryUnitOfWork) Posts() ports.PostRepository    { return memoryPosts{u} }
func (u *memoryUnitOfWork) Users() ports.UserRepository    { return memoryUsers{u} }
func (u *memoryUnitOfWork) Events() ports.OutboxRepository { return memoryOutbox{u} }

func (u *memoryUnitOfWork) Commit(context.Context) (int64, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	var affected int64
	for _, op := range u.ops {
		affected += op()
	}
	u.store.published = append(u.store.published, u.events...)
	u.store.commits++
	return affected, nil
}

func (u *memoryUnitOfWork) Rollback(context.Context) error {
	return nil
}

type memoryPosts struct{ u *memoryUnitOfWork }

func (r memoryPosts) Add(_ context.Context, post *domain.Post) error {
	p := *post
	r.u.ops = append(r.u.ops, func() int64 {
		r.u.store.posts[p.ID] = p
		return 1
	})
	return nil
}

func (r memoryPosts) FindByID(_ context.Context, postID string) (*domain.Post, error) {
	r.u.store.mu.Lock()
	p, ok := r.u.store.posts[postID]
	hook := r.u.store.afterFindPost
	r.u.store.afterFindPost = nil
	r.u.store.mu.Unlock()

	if hook != nil {
		hook(postID)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memoryPosts) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Post, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var out []*domain.Post
	for _, p := range r.u.store.posts {
		if p.UserID == userID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.After(out[j].PostedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return []*domain.Post{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryPosts) Remove(_ context.Context, postID string) error {
	r.u.ops = append(r.u.ops, func() int64 {
		if _, ok := r.u.store.posts[postID]; !ok {
			return 0
		}
		delete(r.u.store.posts, postID)
		return 1
	})
	return nil
}

type memoryUsers struct{ u *memoryUnitOfWork }

func (r memoryUsers) Add(_ context.Context, user *domain.User) error {
	usr := *user
	r.u.ops = append(r.u.ops, func() int64 {
		if _, ok := r.u.store.users[usr.ID]; ok {
			return 0
		}
		r.u.store.users[usr.ID] = usr
		return 1
	})
	return nil
}

func (r memoryUsers) FindByID(_ context.Context, userID string) (*domain.User, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	usr, ok := r.u.store.users[userID]
	if !ok {
		return nil, nil
	}
	return &usr, nil
}

func (r memoryUsers) Update(_ context.Context, user *domain.User) error {
	usr := *user
	r.u.ops = append(r.u.ops, func() int64 {
		if _, ok := r.u.store.users[usr.ID]; !ok {
			return 0
		}
		r.u.store.users[usr.ID] = usr
		return 1
	})
	return nil
}

type memoryOutbox struct{ u *memoryUnitOfWork }

func (r memoryOutbox) Publish(_ context.Context, event domain.Event) error {
	r.u.events = append(r.u.events, event)
	return nil
}

func (r memoryOutbox) ClaimPending(context.Context, int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (r memoryOutbox) MarkPublished(context.Context, []string, time.Time) error {
	return nil
}
