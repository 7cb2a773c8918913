package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
)

const accountKey contextKey = "account"

// AccountSource описывает контракт загрузки аккаунта для проверки роли.
type AccountSource interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
}

// RoleMiddleware проверяет роль аккаунта для админских маршрутов.
// Роль читается из хранилища на каждый запрос, а не из cookie:
// смена роли или блокировка действует немедленно.
type RoleMiddleware struct {
	accounts AccountSource
}

// NewRoleMiddleware создаёт новый экземпляр RoleMiddleware.
func NewRoleMiddleware(accounts AccountSource) *RoleMiddleware {
	return &RoleMiddleware{accounts: accounts}
}

// RequireAdmin пропускает только аккаунты с ролью admin.
func (m *RoleMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(next, model.RoleAdmin)
}

// RequireSupport пропускает аккаунты с ролью support или admin.
func (m *RoleMiddleware) RequireSupport(next http.Handler) http.Handler {
	return m.require(next, model.RoleSupport, model.RoleAdmin)
}

func (m *RoleMiddleware) require(next http.Handler, roles ...model.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := GetAccountIDFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		acc, err := m.accounts.GetAccount(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		allowed := false
		for _, role := range roles {
			if acc.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccountFromContext извлекает аккаунт, загруженный RoleMiddleware, из контекста запроса.
func GetAccountFromContext(ctx context.Context) (*model.Account, bool) {
	acc, ok := ctx.Value(accountKey).(*model.Account)
	return acc, ok
}
