// Package api exposes the authentication HTTP surface.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/merchforge/merchauth/flow"
	"github.com/merchforge/merchauth/identity"
	"github.com/merchforge/merchauth/logger"
	"github.com/merchforge/merchauth/provider"
	"github.com/merchforge/merchauth/session"
)

type Handler struct {
	flows  *flow.Manager
	issuer *session.Issuer
	users  identity.Repository
}

func NewHandler(flows *flow.Manager, issuer *session.Issuer, users identity.Repository) *Handler {
	return &Handler{flows: flows, issuer: issuer, users: users}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.HandleRegister)
	g.POST("/login", h.HandleLogin)
	g.POST("/logout", h.HandleLogout)
	g.GET("/whoami", h.HandleWhoAmI)
}

type authResponse struct {
	User                      *identity.User  `json:"user"`
	Session                   session.Session `json:"session,omitempty"`
	RequiresEmailConfirmation bool            `json:"requires_email_confirmation"`
}

func (h *Handler) HandleRegister(c echo.Context) error {
	var req flow.RegistrationRequest
	if err := c.Bind(&req); err != nil {
		return h.Error(c, oops.Code(flow.CodeValidation).Wrap(err))
	}

	res, err := h.flows.Register(c.Request().Context(), req)
	if err != nil {
		return h.Error(c, err)
	}

	if res.Session != nil {
		h.issuer.Issue(c.Response(), res.Session, res.User)
	}

	return c.JSON(http.StatusOK, authResponse{
		User:                      res.User,
		Session:                   res.Session,
		RequiresEmailConfirmation: res.RequiresEmailConfirmation,
	})
}

func (h *Handler) HandleLogin(c echo.Context) error {
	var req flow.LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.Error(c, oops.Code(flow.CodeValidation).Wrap(err))
	}

	res, err := h.flows.Login(c.Request().Context(), req)
	if err != nil {
		return h.Error(c, err)
	}

	h.issuer.Issue(c.Response(), res.Session, res.User)

	return c.JSON(http.StatusOK, authResponse{
		User:    res.User,
		Session: res.Session,
	})
}

func (h *Handler) HandleLogout(c echo.Context) error {
	h.issuer.Clear(c.Response())
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// HandleWhoAmI resolves the user-id cookie to the stored identity. Unlike
// the route guard this consults the store, so a forged cookie value still
// yields 401.
func (h *Handler) HandleWhoAmI(c echo.Context) error {
	cookie, err := c.Cookie(session.UserIDCookie)
	if err != nil || cookie.Value == "" {
		return h.Error(c, oops.Code(flow.CodeInvalidCredentials).Errorf("not authenticated"))
	}

	user, err := h.users.FindByID(c.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return h.Error(c, oops.Code(flow.CodeInvalidCredentials).Errorf("not authenticated"))
		}
		return h.Error(c, oops.Code(flow.CodeStorage).Wrap(err))
	}

	return c.JSON(http.StatusOK, map[string]*identity.User{"user": user})
}

var statusForCode = map[string]int{
	flow.CodeValidation:          http.StatusBadRequest,
	flow.CodeInvalidCredentials:  http.StatusUnauthorized,
	flow.CodeEmailTaken:          http.StatusConflict,
	flow.CodeMisconfigured:       http.StatusInternalServerError,
	flow.CodeStorage:             http.StatusInternalServerError,
	provider.CodeProviderFailure: http.StatusBadGateway,
}

// Error maps a flow error onto an HTTP status. Client errors carry their
// message and taxonomy code through; anything 5xx is logged with full
// context and replaced with a generic message.
func (h *Handler) Error(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	code := ""
	var oe oops.OopsError
	if errors.As(err, &oe) {
		code, _ = oe.Code().(string)
		if s, ok := statusForCode[code]; ok {
			status = s
		}
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}

	body := map[string]any{"error": msg}
	if code != "" {
		body["code"] = code
	}
	return c.JSON(status, body)
}
