package apperrors

import (
	"fmt"

	"github.com/google/uuid"
)

// Stable machine-readable error codes. These are part of the external
// contract: gateways and clients branch on them, so values must not change.
const (
	CodeInvalidUsernameFormat    = 4001
	CodeInvalidPasswordFormat    = 4002
	CodeInvalidAdditionalPayload = 4003
	CodeMissingRefreshToken      = 4006
	CodeAuthenticationFailed     = 4011
	CodeInvalidAccessToken       = 4031
	CodeTokenExpired             = 4032
	CodeUserDeactivated          = 4033
	CodeRefreshTokenNotFound     = 4041
	CodeUserNotFound             = 4042
	CodeRefreshTokenExpired      = 4201
	CodeUnexpectedError          = 5001
	CodeStorageFailure           = 5002
)

// Error is the service-wide error shape. Status is the HTTP status the API
// gateway maps the error to, Code is the stable numeric code, ID identifies
// this particular occurrence in logs.
type Error struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Title)
}

func newError(status, code int, title, detail string) *Error {
	return &Error{
		Status: status,
		Code:   code,
		ID:     uuid.NewString(),
		Title:  title,
		Detail: detail,
	}
}

func InvalidUsernameFormat(username string) *Error {
	return newError(400, CodeInvalidUsernameFormat, "Invalid username format", "Invalid username: "+username)
}

func InvalidPasswordFormat() *Error {
	return newError(400, CodeInvalidPasswordFormat, "Invalid password format", "")
}

func InvalidAdditionalPayload(detail string) *Error {
	return newError(400, CodeInvalidAdditionalPayload, "Invalid additional payload", detail)
}

// AuthenticationFailed keeps the upstream 401/403 status so the gateway
// passes it through unchanged.
func AuthenticationFailed(status int) *Error {
	return newError(status, CodeAuthenticationFailed, "Invalid username or password", "")
}

func MissingRefreshToken() *Error {
	return newError(400, CodeMissingRefreshToken, "Refresh token not provided", "")
}

func InvalidAccessToken(detail string) *Error {
	return newError(403, CodeInvalidAccessToken, "Invalid access token", detail)
}

func TokenExpired() *Error {
	return newError(403, CodeTokenExpired, "Access token expired", "")
}

func UserDeactivated(userID string) *Error {
	return newError(403, CodeUserDeactivated, "User is deactivated", "User "+userID+" is deactivated")
}

func RefreshTokenNotFound() *Error {
	return newError(404, CodeRefreshTokenNotFound, "Refresh token not found", "")
}

func UserNotFound(detail string) *Error {
	return newError(404, CodeUserNotFound, "User not found", detail)
}

// RefreshTokenExpired covers both expiry signals: the explicit `expired`
// flag and the absolute expiry time. The detail says which one tripped.
func RefreshTokenExpired(token string, byFlag bool) *Error {
	reason := "by date"
	if byFlag {
		reason = "by flag"
	}
	return newError(420, CodeRefreshTokenExpired, "Refresh token expired",
		fmt.Sprintf("Refresh token %q is expired %s", token, reason))
}

func UnexpectedError(detail string) *Error {
	return newError(500, CodeUnexpectedError, "Unexpected error", detail)
}

func StorageFailure(detail string) *Error {
	return newError(500, CodeStorageFailure, "Storage failure", detail)
}
