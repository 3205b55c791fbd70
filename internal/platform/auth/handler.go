package auth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/omr/omr/internal/platform/apperr"
)

// Credential is one operator account the login endpoint accepts.
type Credential struct {
	Login    string
	Password string
	Name     string
	DeptCode string
	DocCode  string
	Roles    []string
}

// Handler serves login and session introspection.
type Handler struct {
	secret []byte
	ttl    time.Duration
	users  map[string]Credential
}

func NewHandler(secret []byte, ttl time.Duration, users []Credential) *Handler {
	byLogin := make(map[string]Credential, len(users))
	for _, u := range users {
		byLogin[u.Login] = u
	}
	return &Handler{secret: secret, ttl: ttl, users: byLogin}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authed *echo.Group) {
	api.POST("/auth/login", h.Login)
	authed.GET("/auth/session", h.CurrentSession)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   Session   `json:"session"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(http.StatusBadRequest, "bad_request", "invalid login body")
	}
	user, ok := h.users[req.Username]
	if !ok || subtle.ConstantTimeCompare([]byte(user.Password), []byte(req.Password)) != 1 {
		return apperr.New(http.StatusUnauthorized, "login_failed", "unknown operator or wrong password")
	}

	session := Session{
		Login:    user.Login,
		Name:     user.Name,
		DeptCode: user.DeptCode,
		DocCode:  user.DocCode,
		Roles:    user.Roles,
	}
	token, err := IssueToken(h.secret, session, h.ttl)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.ttl),
		Session:   session,
	})
}

func (h *Handler) CurrentSession(c echo.Context) error {
	session := SessionFromContext(c.Request().Context())
	if session == nil {
		return apperr.ErrAuthExpired
	}
	return c.JSON(http.StatusOK, session)
}
