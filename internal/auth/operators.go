package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials возвращается при неверном имени или пароле оператора
var ErrBadCredentials = errors.New("bad operator credentials")

// HashPassword returns a bcrypt hash of the password using DefaultCost.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticator проверяет операторов отладочного API и выдаёт им токены.
// Хэши паролей задаются в конфигурации (bcrypt).
type Authenticator struct {
	mu        sync.RWMutex
	operators map[string]string // имя -> bcrypt-хэш
	issuer    *TokenIssuer
}

// NewAuthenticator создаёт аутентификатор с заданными операторами
func NewAuthenticator(issuer *TokenIssuer, operators map[string]string) *Authenticator {
	ops := make(map[string]string, len(operators))
	for name, hash := range operators {
		ops[name] = hash
	}
	return &Authenticator{operators: ops, issuer: issuer}
}

// Enabled сообщает, настроен ли хотя бы один оператор
func (a *Authenticator) Enabled() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.operators) > 0
}

// Login проверяет пароль и возвращает токен
func (a *Authenticator) Login(name, password string) (string, error) {
	a.mu.RLock()
	hash, ok := a.operators[name]
	a.mu.RUnlock()

	if !ok || !CheckPassword(hash, password) {
		return "", ErrBadCredentials
	}
	return a.issuer.Issue(name)
}

// Verify проверяет токен и возвращает имя оператора
func (a *Authenticator) Verify(token string) (string, error) {
	claims, err := a.issuer.Validate(token)
	if err != nil {
		return "", err
	}

	a.mu.RLock()
	_, ok := a.operators[claims.Operator]
	a.mu.RUnlock()
	if !ok {
		return "", ErrInvalidToken
	}
	return claims.Operator, nil
}
