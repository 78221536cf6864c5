package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// Auth error codes returned by the identity endpoints.
const (
	AuthInvalidEmail      = "invalid-email"
	AuthWrongPassword     = "wrong-password"
	AuthUserNotFound      = "user-not-found"
	AuthNetworkFailed     = "network-request-failed"
	AuthWeakPassword      = "weak-password"
	AuthEmailAlreadyInUse = "email-already-in-use"
)

var authMessages = map[string]string{
	AuthInvalidEmail:      "Geçersiz e-posta adresi.",
	AuthWrongPassword:     "Hatalı şifre.",
	AuthUserNotFound:      "Bu e-posta adresiyle kayıtlı kullanıcı bulunamadı.",
	AuthNetworkFailed:     "Ağ bağlantısı hatası. Lütfen internet bağlantınızı kontrol edin.",
	AuthWeakPassword:      "Şifre en az 6 karakter olmalıdır.",
	AuthEmailAlreadyInUse: "Bu e-posta adresi zaten kullanımda.",
}

// AuthError is a sign-in or sign-up failure carrying a stable code.
type AuthError struct {
	Code string
	Err  error
}

func NewAuthError(code string, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthErrorMessage maps err to the message shown to staff. Errors with a known
// code get the localized text; anything else surfaces its raw message.
func AuthErrorMessage(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		if msg, ok := authMessages[authErr.Code]; ok {
			return msg
		}
	}
	return err.Error()
}

func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondWithAuthError writes an auth failure with both its code and message.
func RespondWithAuthError(c *gin.Context, status int, err error) {
	body := gin.H{"error": AuthErrorMessage(err)}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		body["code"] = authErr.Code
	}
	c.AbortWithStatusJSON(status, body)
}
