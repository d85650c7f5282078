package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophive/cart-service/internal/cache"
	"github.com/shophive/cart-service/internal/catalog"
	"github.com/shophive/cart-service/internal/domain"
)

type mockRepository struct {
	m        sync.RWMutex
	carts    map[int64][]domain.CartLine
	err      error
	mergeErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[int64][]domain.CartLine)}
}

func (m *mockRepository) GetLines(_ context.Context, userID int64) ([]domain.CartLine, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.CartLine{}, m.carts[userID]...), nil
}

func (m *mockRepository) AddLine(_ context.Context, userID, productID int64, delta int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.addLocked(userID, productID, delta)
	return nil
}

func (m *mockRepository) addLocked(userID, productID int64, delta int) {
	lines := m.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += delta
			m.carts[userID] = lines
			return
		}
	}
	m.carts[userID] = append(lines, domain.CartLine{ProductID: productID, Quantity: delta})
}

func (m *mockRepository) SetQuantity(_ context.Context, userID, productID int64, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if quantity <= 0 {
		m.removeLocked(userID, productID)
		return nil
	}
	lines := m.carts[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			m.carts[userID] = lines
			return nil
		}
	}
	return nil
}

func (m *mockRepository) RemoveLine(_ context.Context, userID, productID int64) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.removeLocked(userID, productID), nil
}

func (m *mockRepository) removeLocked(userID, productID int64) bool {
	lines := m.carts[userID]
	for i, line := range lines {
		if line.ProductID == productID {
			m.carts[userID] = append(lines[:i], lines[i+1:]...)
			return true
		}
	}
	return false
}

func (m *mockRepository) DeleteCart(_ context.Context, userID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.carts, userID)
	return nil
}

func (m *mockRepository) MergeLines(_ context.Context, userID int64, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.mergeErr != nil {
		// Atomic: the failed attempt leaves nothing behind.
		return m.mergeErr
	}
	for _, line := range lines {
		m.addLocked(userID, line.ProductID, line.Quantity)
	}
	return nil
}

func (m *mockRepository) quantities(userID int64) map[int64]int {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make(map[int64]int)
	for _, line := range m.carts[userID] {
		out[line.ProductID] = line.Quantity
	}
	return out
}

type mockCache struct {
	m     sync.RWMutex
	lines map[int64][]domain.CartLine
}

func newMockCache() *mockCache {
	return &mockCache{lines: make(map[int64][]domain.CartLine)}
}

func (m *mockCache) Get(_ context.Context, userID int64) ([]domain.CartLine, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	lines, ok := m.lines[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return lines, nil
}

func (m *mockCache) Set(_ context.Context, userID int64, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.lines[userID] = lines
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.lines, userID)
	return nil
}

type mockSessions struct {
	m       sync.RWMutex
	carts   map[string][]domain.CartLine
	auth    map[string]int64
	saveErr error
	readErr error
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		carts: make(map[string][]domain.CartLine),
		auth:  make(map[string]int64),
	}
}

func (m *mockSessions) GetCart(_ context.Context, token string) ([]domain.CartLine, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]domain.CartLine{}, m.carts[token]...), nil
}

func (m *mockSessions) SaveCart(_ context.Context, token string, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.carts[token] = lines
	return nil
}

func (m *mockSessions) ClearCart(_ context.Context, token string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, token)
	return nil
}

func (m *mockSessions) CreateAuth(_ context.Context, userID int64) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	token := "token"
	m.auth[token] = userID
	return token, nil
}

func (m *mockSessions) GetAuth(_ context.Context, token string) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	userID, ok := m.auth[token]
	if !ok {
		return 0, domain.ErrUnauthenticated
	}
	return userID, nil
}

func (m *mockSessions) DeleteAuth(_ context.Context, token string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.auth, token)
	return nil
}

type mockCatalog struct {
	m        sync.RWMutex
	products map[int64]*catalog.Product
}

func newMockCatalog(products ...*catalog.Product) *mockCatalog {
	c := &mockCatalog{products: make(map[int64]*catalog.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) ListProducts(context.Context, catalog.Page) ([]*catalog.Product, int, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	var out []*catalog.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockCatalog) remove(id int64) {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.products, id)
}

func newTestService(repo *mockRepository, cat *mockCatalog) (*CartService, *mockSessions) {
	sessions := newMockSessions()
	return NewCartService(repo, newMockCache(), sessions, cat), sessions
}

var (
	anon  = Shopper{Token: "visitor-1"}
	buyer = Shopper{UserID: 42, Authenticated: true}
)

func TestAdd_NoDuplicateLines(t *testing.T) {
	cat := newMockCatalog(&catalog.Product{ID: 1, Name: "mug", Price: 10.00})
	svc, sessions := newTestService(newMockRepository(), cat)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, anon, 1, 1))
	require.NoError(t, svc.Add(ctx, anon, 1, 1))

	lines, err := sessions.GetCart(ctx, anon.Token)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc, _ := newTestService(newMockRepository(), newMockCatalog())

	err := svc.Add(context.Background(), anon, 99, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAdd_InvalidQuantity(t *testing.T) {
	cat := newMockCatalog(&catalog.Product{ID: 1, Price: 10.00})
	svc, _ := newTestService(newMockRepository(), cat)

	err := svc.Add(context.Background(), anon, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	err = svc.Add(context.Background(), anon, 1, -3)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestAdd_AuthenticatedUsesRepository(t *testing.T) {
	repo := newMockRepository()
	cat := newMockCatalog(&catalog.Product{ID: 7, Name: "lamp", Price: 19.99})
	svc, sessions := newTestService(repo, cat)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, buyer, 7, 2))

	assert.Equal(t, map[int64]int{7: 2}, repo.quantities(buyer.UserID))
	lines, err := sessions.GetCart(ctx, buyer.Token)
	require.NoError(t, err)
	assert.Empty(t, lines, "authenticated adds must not touch the session store")
}

func TestSetQuantity_FloorRemovesLine(t *testing.T) {
	cat := newMockCatalog(&catalog.Product{ID: 1, Price: 5.00})
	svc, sessions := newTestService(newMockRepository(), cat)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, anon, 1, 2))

	require.NoError(t, svc.SetQuantity(ctx, anon, 1, 0))
	lines, err := sessions.GetCart(ctx, anon.Token)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, svc.Add(ctx, anon, 1, 2))
	require.NoError(t, svc.SetQuantity(ctx, anon, 1, -1))
	lines, err = sessions.GetCart(ctx, anon.Token)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSetQuantity_MissingLineIsNoOp(t *testing.T) {
	cat := newMockCatalog(&catalog.Product{ID: 1, Price: 5.00})
	svc, sessions := newTestService(newMockRepository(), cat)
	ctx := context.Background()

	require.NoError(t, svc.SetQuantity(ctx, anon, 1, 3))

	lines, err := sessions.GetCart(ctx, anon.Token)
	require.NoError(t, err)
	assert.Empty(t, lines, "setting quantity must not create lines")
}

func TestRemove_Idempotent(t *testing.T) {
	repo := newMockRepository()
	cat := newMockCatalog(&catalog.Product{ID: 1, Price: 5.00})
	svc, _ := newTestService(repo, cat)
	ctx := context.Background()

	removed, err := svc.Remove(ctx, anon, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.Remove(ctx, buyer, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, svc.Add(ctx, buyer, 1, 1))
	removed, err = svc.Remove(ctx, buyer, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, buyer, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestView_TotalFloatsWithCatalog(t *testing.T) {
	cat := newMockCatalog(
		&catalog.Product{ID: 1, Name: "A", Price: 10.00},
		&catalog.Product{ID: 2, Name: "B", Price: 5.50},
	)
	svc, _ := newTestService(newMockRepository(), cat)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, anon, 1, 2))
	require.NoError(t, svc.Add(ctx, anon, 2, 1))

	view, err := svc.View(ctx, anon)
	require.NoError(t, err)
	assert.InDelta(t, 25.50, view.Total, 1e-9)
	assert.Len(t, view.Lines, 2)
	assert.Zero(t, view.Skipped)

	// Product B vanishes from the catalog; its line is skipped, not
	// zero-priced, and the cart stays viewable.
	cat.remove(2)

	view, err = svc.View(ctx, anon)
	require.NoError(t, err)
	assert.InDelta(t, 20.00, view.Total, 1e-9)
	assert.Len(t, view.Lines, 1)
	assert.Equal(t, 1, view.Skipped)
}

func TestView_EmptyCart(t *testing.T) {
	svc, _ := newTestService(newMockRepository(), newMockCatalog())

	view, err := svc.View(context.Background(), anon)
	require.NoError(t, err)
	assert.Zero(t, view.Total)
	assert.Empty(t, view.Lines)
}

func TestClear(t *testing.T) {
	repo := newMockRepository()
	cat := newMockCatalog(&catalog.Product{ID: 1, Price: 1.00})
	svc, sessions := newTestService(repo, cat)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, anon, 1, 1))
	require.NoError(t, svc.Clear(ctx, anon))
	lines, err := sessions.GetCart(ctx, anon.Token)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, svc.Add(ctx, buyer, 1, 1))
	require.NoError(t, svc.Clear(ctx, buyer))
	assert.Empty(t, repo.quantities(buyer.UserID))
}

// Anonymous visitor adds product 7 twice, registers, then adds it once
// more while authenticated.
func TestScenario_AnonymousToAuthenticated(t *testing.T) {
	repo := newMockRepository()
	cat := newMockCatalog(&catalog.Product{ID: 7, Name: "lamp", Price: 19.99})
	svc, sessions := newTestService(repo, cat)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, anon, 7, 1))
	require.NoError(t, svc.Add(ctx, anon, 7, 1))

	view, err := svc.View(ctx, anon)
	require.NoError(t, err)
	assert.InDelta(t, 39.98, view.Total, 1e-9)

	require.NoError(t, svc.MergeOnAuth(ctx, anon.Token, buyer.UserID))
	assert.Equal(t, map[int64]int{7: 2}, repo.quantities(buyer.UserID))

	lines, err := sessions.GetCart(ctx, anon.Token)
	require.NoError(t, err)
	assert.Empty(t, lines, "session cart must be cleared by the merge")

	require.NoError(t, svc.Add(ctx, buyer, 7, 1))
	assert.Equal(t, map[int64]int{7: 3}, repo.quantities(buyer.UserID))
}
