package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrowbid-backend/internal/http/middleware"
	"github.com/ignatzorin/escrowbid-backend/internal/logger"
	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

var (
	// ErrUserNotFound возвращается, если в контексте нет участника
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID возвращается при неверном формате UUID
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error string             `json:"error"`
	Code  apperror.ErrorCode `json:"code"`
}

// CurrentPrincipal извлекает участника запроса из контекста gin.
func CurrentPrincipal(c *gin.Context) (service.Principal, error) {
	rawID, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return service.Principal{}, ErrUserNotFound
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return service.Principal{}, ErrUserNotFound
	}

	rawRole, _ := c.Get(middleware.ContextRoleKey)
	role, _ := rawRole.(string)

	return service.Principal{ID: userID, Role: role}, nil
}

// ParseUUIDParam читает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// BindJSON разбирает тело запроса и отвечает 400 при ошибке. Возвращает false, если ответ уже отправлен.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "ошибка валидации запроса: "+err.Error()))
		return false
	}
	return true
}

// RespondError переводит ошибку в HTTP ответ по коду AppError.
// Ошибки без кода и ошибки хранилища скрываются за общим сообщением.
func RespondError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Component("http").WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   appErr.Code,
		}).WithError(err).Error("ошибка обработки запроса")
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
}

// RespondUnauthorized отвечает 401.
func RespondUnauthorized(c *gin.Context) {
	RespondError(c, apperror.ErrUnauthorized)
}

// RespondBadRequest отвечает 400 с сообщением.
func RespondBadRequest(c *gin.Context, message string) {
	RespondError(c, apperror.New(apperror.ErrCodeBadRequest, message))
}

// ParseIntQuery читает целый query-параметр с запасным значением.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination извлекает limit и offset из query.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
