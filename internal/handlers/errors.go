package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/handlers/response"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
)

// errorMapping 业务哨兵错误到 HTTP 状态码与业务码的映射
// 顺序即匹配顺序，新增错误在对应分组追加
var errorMapping = []struct {
	sentinel   error
	httpStatus int
	code       int
}{
	{xerr.ErrInvalidParams, http.StatusBadRequest, xerr.InvalidParamsCode},
	{xerr.ErrValidationFailed, http.StatusBadRequest, xerr.ValidationFailedCode},
	{xerr.ErrFileTooLarge, http.StatusBadRequest, xerr.FileTooLargeCode},
	{xerr.ErrFileNameInvalid, http.StatusBadRequest, xerr.FileNameInvalidCode},
	{xerr.ErrExpiryInvalid, http.StatusBadRequest, xerr.ExpiryInvalidCode},
	{xerr.ErrQuotaExceeded, http.StatusBadRequest, xerr.QuotaExceededCode},

	{xerr.ErrUnauthorized, http.StatusUnauthorized, xerr.UnauthorizedCode},
	{xerr.ErrTokenInvalid, http.StatusUnauthorized, xerr.TokenInvalidCode},
	{xerr.ErrInvalidCredentials, http.StatusUnauthorized, xerr.InvalidCredentialsCode},

	{xerr.ErrForbidden, http.StatusForbidden, xerr.ForbiddenCode},
	{xerr.ErrPermissionDenied, http.StatusForbidden, xerr.PermissionDeniedCode},
	{xerr.ErrShareRevoked, http.StatusForbidden, xerr.ShareRevokedCode},
	{xerr.ErrSharePasswordRequired, http.StatusForbidden, xerr.SharePasswordRequiredCode},
	{xerr.ErrSharePasswordIncorrect, http.StatusForbidden, xerr.SharePasswordIncorrectCode},

	{xerr.ErrUserNotFound, http.StatusNotFound, xerr.UserNotFoundCode},
	{xerr.ErrFileNotFound, http.StatusNotFound, xerr.FileNotFoundCode},
	{xerr.ErrShareNotFound, http.StatusNotFound, xerr.ShareNotFoundCode},

	{xerr.ErrShareExpired, http.StatusGone, xerr.ShareExpiredCode},

	{xerr.ErrUserAlreadyExists, http.StatusConflict, xerr.UserAlreadyExistsCode},
	{xerr.ErrEmailAlreadyExists, http.StatusConflict, xerr.EmailAlreadyExistsCode},

	{xerr.ErrKeyCollision, http.StatusInternalServerError, xerr.KeyCollisionCode},
	{xerr.ErrDatabaseError, http.StatusInternalServerError, xerr.DatabaseErrorCode},
	{xerr.ErrStorageError, http.StatusInternalServerError, xerr.StorageErrorCode},
	{xerr.ErrMQError, http.StatusInternalServerError, xerr.MQErrorCode},
	{xerr.ErrEmailError, http.StatusInternalServerError, xerr.EmailErrorCode},
}

// respondError 按哨兵错误发送对应的错误响应，未识别的错误统一按 500 处理
func respondError(c *gin.Context, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.sentinel) {
			response.Error(c, m.httpStatus, m.code, m.sentinel.Error())
			return
		}
	}
	response.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, xerr.ErrInternalServer.Error())
}
