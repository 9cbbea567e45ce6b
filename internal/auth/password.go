package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword: пустой пароль оператора не хешируется
var ErrEmptyPassword = errors.New("пустой пароль")

// dummyHash сравнивается с паролем неизвестного оператора, чтобы время ответа
// не выдавало, какие имена есть в таблице
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("lightcheck"), bcrypt.DefaultCost)

// HashPassword возвращает bcrypt-хеш для поля auth.operators конфигурации
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль с bcrypt-хешем
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate проверяет пароль оператора по таблице имя -> bcrypt hash.
// Неизвестное имя и неверный пароль неразличимы для вызывающего.
func Authenticate(operators map[string]string, name, password string) bool {
	hash, ok := operators[name]
	if !ok || name == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return CheckPassword(hash, password)
}
