package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotOperator: токен валиден, но не даёт права запускать проверку
var ErrNotOperator = errors.New("токен без прав оператора")

// DefaultTTL: срок жизни выданного токена
const DefaultTTL = 24 * time.Hour

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

func init() {
	// Без явного секрета токены живут только до перезапуска процесса
	jwtSecret = make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		panic(fmt.Sprintf("auth: не удалось сгенерировать секрет: %v", err))
	}
}

// Claims: полезная нагрузка токена оператора
type Claims struct {
	Operator bool `json:"operator"`
	jwt.RegisteredClaims
}

// GenerateJWT выпускает токен для subject. operator разрешает запуск полного обхода.
func GenerateJWT(subject string, operator bool, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "lightcheck",
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateJWT проверяет подпись и срок действия токена
func ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи %v", token.Header["alg"])
		}
		return secret(), nil
	}, jwt.WithIssuer("lightcheck"))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// RequireOperator проверяет токен и наличие claim operator
func RequireOperator(tokenString string) (*Claims, error) {
	claims, err := ValidateJWT(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.Operator {
		return claims, ErrNotOperator
	}
	return claims, nil
}

// GenerateSecureSecret возвращает случайный секрет для auth.jwt_secret
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// SetJWTSecret задаёт секрет из конфигурации (base64, не короче 32 байт)
func SetJWTSecret(secret string) error {
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return err
	}
	if len(decoded) < 32 {
		return fmt.Errorf("секрет %d байт, нужно не меньше 32", len(decoded))
	}
	secretMu.Lock()
	jwtSecret = decoded
	secretMu.Unlock()
	return nil
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}
