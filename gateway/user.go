package gateway

import (
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// @Summary  Create a customer account
// @Tags     user
// @Accept   json
// @Produce  json
// @Param    body  body  service.RegisterInput  true  "account"
// @Success  200  {object}  map[string]interface{}
// @Router   /api/user/register [post]
func (g *Gateway) register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := g.services.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"token": token})
}

// @Summary  Sign in
// @Tags     user
// @Accept   json
// @Produce  json
// @Param    body  body  loginRequest  true  "credentials"
// @Success  200  {object}  map[string]interface{}
// @Router   /api/user/login [post]
func (g *Gateway) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := g.services.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"token": token})
}

// @Summary  Sign in as admin
// @Tags     user
// @Accept   json
// @Produce  json
// @Param    body  body  loginRequest  true  "credentials"
// @Success  200  {object}  map[string]interface{}
// @Router   /api/user/admin [post]
func (g *Gateway) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := g.services.Accounts.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"token": token})
}

// @Summary  Send a password reset link
// @Tags     user
// @Accept   json
// @Produce  json
// @Param    body  body  forgotPasswordRequest  true  "account e-mail"
// @Success  200  {object}  map[string]interface{}
// @Router   /api/user/forgot-password [post]
func (g *Gateway) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := g.services.Accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "If the account exists, a reset link has been sent"})
}

// @Summary  Set a new password with a reset token
// @Tags     user
// @Accept   json
// @Produce  json
// @Param    body  body  resetPasswordRequest  true  "token and password"
// @Success  200  {object}  map[string]interface{}
// @Router   /api/user/reset-password [post]
func (g *Gateway) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := g.services.Accounts.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Password updated"})
}
