package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/lightcheck/internal/auth"
	"github.com/annel0/lightcheck/internal/middleware"
)

var errNoBearer = errors.New("ожидается заголовок Authorization: Bearer <token>")

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return strings.TrimSpace(token), nil
}

// operatorMiddleware пропускает только владельцев токена с claim operator.
// Нет или испорчен токен: 401, токен без прав оператора: 403.
func (rs *RestServer) operatorMiddleware() gin.HandlerFunc {
	deny := func(c *gin.Context, status int, msg string) {
		c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: msg})
	}
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			deny(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.RequireOperator(token)
		switch {
		case errors.Is(err, auth.ErrNotOperator):
			deny(c, http.StatusForbidden, "Полный обход доступен только оператору")
			return
		case err != nil:
			rs.logger.Debug("Отклонён токен: %v", err)
			deny(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}

		c.Set(middleware.SubjectKey, claims.Subject)
		c.Next()
	}
}
