package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/middleware"
	"tour-booking-api/internal/usecase/user"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

// SessionCookie controls the cookie a session token is also delivered in.
type SessionCookie struct {
	TTL    time.Duration
	Secure bool
}

type UserHandler struct {
	service *user.Service
	admin   *ResourceHandler[domainUser.User]
	cookie  SessionCookie
}

func NewUserHandler(service *user.Service, admin *ResourceHandler[domainUser.User], cookie SessionCookie) *UserHandler {
	return &UserHandler{service: service, admin: admin, cookie: cookie}
}

// RegisterRoutes mounts the account routes on /users. authenticate guards
// everything after the public sign-in routes.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, authenticate gin.HandlerFunc) {
	users := router.Group("/users")
	{
		users.POST("/signup", h.SignUp)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgotPassword", h.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.ResetPassword)
	}

	self := users.Group("", authenticate)
	{
		self.PATCH("/updateMyPassword", h.UpdateMyPassword)
		self.GET("/me", h.GetMe)
		self.PATCH("/updateMe", h.UpdateMe)
		self.DELETE("/deleteMe", h.DeleteMe)
	}

	admin := users.Group("", authenticate, middleware.RequireRoles(domainUser.RoleAdmin))
	{
		admin.GET("", h.admin.List)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", h.admin.Get)
		admin.PATCH("/:id", h.admin.Update)
		admin.DELETE("/:id", h.admin.Delete)
	}
}

func (h *UserHandler) SignUp(c *gin.Context) {
	var req user.SignUpRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	session, err := h.service.SignUp(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendSession(c, http.StatusCreated, session)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	session, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendSession(c, http.StatusOK, session)
}

// Logout overwrites the session cookie. A bearer token stays valid until it expires.
func (h *UserHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "loggedout", 10, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, utils.Response{Status: utils.StatusSuccess})
}

func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req user.ForgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), &req, resetBaseURL(c)); err != nil {
		fail(c, err)
		return
	}
	utils.MessageResponse(c, http.StatusOK, "Token sent to email!")
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req user.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	session, err := h.service.ResetPassword(c.Request.Context(), c.Param("token"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendSession(c, http.StatusOK, session)
}

func (h *UserHandler) UpdateMyPassword(c *gin.Context) {
	var req user.ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	session, err := h.service.ChangePassword(c.Request.Context(), middleware.Principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.sendSession(c, http.StatusOK, session)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.service.GetMe(c.Request.Context(), middleware.Principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"data": me})
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req user.UpdateMeRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	updated, err := h.service.UpdateMe(c.Request.Context(), middleware.Principal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"user": updated})
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.service.DeleteMe(c.Request.Context(), middleware.Principal(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req user.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	created, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, gin.H{"data": created})
}

// NormalizeUserPayload prepares an administrator's user update: the email is
// stored lower-cased like every other write, and passwords only change
// through the password routes.
func NormalizeUserPayload(_ *gin.Context, payload map[string]any) error {
	for _, key := range []string{"password", "passwordConfirm", "passwordCurrent"} {
		if _, ok := payload[key]; ok {
			return appErrors.ErrPasswordUpdateNotAllowed.WithMessage("This route is not for password updates. Please use /forgotPassword")
		}
	}
	if email, ok := payload["email"].(string); ok {
		payload["email"] = utils.NormalizeEmail(email)
	}
	return nil
}

func (h *UserHandler) sendSession(c *gin.Context, status int, session *user.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, session.Token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	utils.TokenResponse(c, status, session.Token, gin.H{"user": session.User})
}

func resetBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/api/v1/users/resetPassword"
}
