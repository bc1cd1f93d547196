// Package admin serves the account and authoring endpoints: registration,
// login, email and password flows, settings, and blog and post management.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogpp/account"
	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/publishing"
)

type AdminModule struct {
	accounts   *account.Service
	publishing *publishing.Service
	limit      gin.HandlerFunc
}

// NewAdminModule wires the handlers. limit guards the credential endpoints
// and may be nil.
func NewAdminModule(accounts *account.Service, publishing *publishing.Service, limit gin.HandlerFunc) *AdminModule {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &AdminModule{accounts: accounts, publishing: publishing, limit: limit}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/register", a.limit, a.register)
	router.POST("/login", a.limit, a.login)
	router.POST("/logout", a.logout)

	router.POST("/send-email-confirm", a.limit, a.sendEmailConfirm)
	router.GET("/email-confirm", a.emailConfirm)
	router.POST("/email-change", auth.RequireAuth, a.emailChange)
	router.GET("/email-change-confirm", a.emailChangeConfirm)
	router.POST("/pass-mail", a.limit, a.passMail)
	router.GET("/passreset", a.passReset)
	router.POST("/set-password-confirm", a.limit, a.setPasswordConfirm)

	settings := router.Group("/user", auth.RequireAuth)
	{
		settings.GET("/settings", a.settings)
		settings.POST("/settings", a.updateSettings)
		settings.POST("/settings/account", a.changePassword)
		settings.GET("/settings/notifications", a.notifications)
		settings.POST("/settings/notifications", a.updateNotifications)
		settings.POST("/delete", a.deleteUser)
	}

	authoring := router.Group("", auth.RequireAuth)
	{
		authoring.POST("/blogs", a.createBlog)
		authoring.POST("/blog/:name/edit", a.editBlog)
		authoring.POST("/blog/:name/delete", a.deleteBlog)

		authoring.POST("/add", a.createPost)
		authoring.POST("/edit/:id", a.editPost)
		authoring.POST("/delete/:id", a.deletePost)

		authoring.POST("/tag/add/:id", a.addTag)
		authoring.POST("/tag/delete/:pid/:tid", a.removeTag)
	}
}

// accountView is the owner's view of their account. The public user JSON
// never carries the email.
type accountView struct {
	*models.User
	Email string `json:"email"`
}

func ownAccount(u *models.User) accountView {
	return accountView{User: u, Email: u.Email}
}

type loginInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (a *AdminModule) register(c *gin.Context) {
	var in account.RegisterInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	user, err := a.accounts.Register(c.Request.Context(), in)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ownAccount(user))
}

func (a *AdminModule) login(c *gin.Context) {
	var in loginInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	user, err := a.accounts.Authenticate(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if err := auth.Login(c, user); err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, ownAccount(user))
}

func (a *AdminModule) logout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *AdminModule) sendEmailConfirm(c *gin.Context) {
	var in struct {
		Username string `json:"username" form:"username"`
	}
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	if err := a.accounts.ResendConfirmation(c.Request.Context(), in.Username); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (a *AdminModule) emailConfirm(c *gin.Context) {
	user, err := a.accounts.ConfirmEmail(c.Request.Context(), c.Query("token_id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_confirmed": user.EmailConfirmed})
}

func (a *AdminModule) emailChange(c *gin.Context) {
	var in struct {
		Email string `json:"email" form:"email"`
	}
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	if err := a.accounts.RequestEmailChange(c.Request.Context(), auth.Current(c), in.Email); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent", "email": in.Email})
}

func (a *AdminModule) emailChangeConfirm(c *gin.Context) {
	user, err := a.accounts.ConfirmEmailChange(c.Request.Context(), c.Query("token_id"), c.Query("email"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ownAccount(user))
}

// passMail sends either the username reminder or the password reset link.
func (a *AdminModule) passMail(c *gin.Context) {
	var in struct {
		Type  string `json:"type" form:"type"`
		Email string `json:"email" form:"email"`
	}
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	var err error
	switch in.Type {
	case "username":
		err = a.accounts.RemindUsername(c.Request.Context(), in.Email)
	case "password":
		err = a.accounts.RequestPasswordReset(c.Request.Context(), in.Email)
	default:
		err = common.Invalid("type", "must be username or password")
	}
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

// passReset is where the reset mail links to. It hands the token back for
// the follow-up POST.
func (a *AdminModule) passReset(c *gin.Context) {
	tokenID := c.Query("token_id")
	if tokenID == "" {
		common.WriteError(c, common.Invalid("token_id", "must be provided"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token_id": tokenID})
}

func (a *AdminModule) setPasswordConfirm(c *gin.Context) {
	var in struct {
		Token    string `json:"token" form:"token"`
		Password string `json:"password" form:"password"`
	}
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	if err := a.accounts.ResetPassword(c.Request.Context(), in.Token, in.Password); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"password_confirmed": true})
}
