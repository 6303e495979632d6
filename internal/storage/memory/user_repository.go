package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// userRepositoryInMemory — простая in-memory реализация IdentityRepository.
type userRepositoryInMemory struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

// NewUserRepository возвращает in-memory identity-хранилище.
func NewUserRepository() domain.IdentityRepository {
	return &userRepositoryInMemory{
		byEmail: make(map[string]domain.User),
	}
}

// Create сохраняет аккаунт, если email ещё не занят.
func (r *userRepositoryInMemory) Create(_ context.Context, user domain.User) error {
	key := normalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return domain.ErrUserExists
	}
	r.byEmail[key] = user
	return nil
}

// GetByEmail возвращает аккаунт или ErrUserNotFound.
func (r *userRepositoryInMemory) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// List возвращает все аккаунты в стабильном порядке.
func (r *userRepositoryInMemory) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.byEmail))
	for _, user := range r.byEmail {
		result = append(result, user)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})

	return result, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ domain.IdentityRepository = (*userRepositoryInMemory)(nil)
