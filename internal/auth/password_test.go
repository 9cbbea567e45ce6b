package auth

import "testing"

// TestHashPassword тестирует хеширование и проверку пароля
func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Ошибка хеширования: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("Хеш совпадает с паролем")
	}

	if !CheckPassword(hash, "s3cret") {
		t.Error("Верный пароль не принят")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("Неверный пароль принят")
	}
	if CheckPassword("not-a-hash", "s3cret") {
		t.Error("Испорченный хеш принят")
	}
	if _, err := HashPassword(""); err != ErrEmptyPassword {
		t.Errorf("Ожидалась ErrEmptyPassword, получено %v", err)
	}
}

// TestAuthenticate тестирует проверку оператора по таблице
func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("Ошибка хеширования: %v", err)
	}
	ops := map[string]string{"ops": hash}

	if !Authenticate(ops, "ops", "pw") {
		t.Error("Оператор с верным паролем не прошёл проверку")
	}
	if Authenticate(ops, "ops", "bad") {
		t.Error("Неверный пароль принят")
	}
	if Authenticate(ops, "ghost", "pw") {
		t.Error("Неизвестный оператор принят")
	}
	if Authenticate(nil, "ops", "pw") {
		t.Error("Пустая таблица операторов должна отклонять всех")
	}
}
