package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blogpp/account"
	"blogpp/auth"
	"blogpp/common"
)

func (a *AdminModule) settings(c *gin.Context) {
	user, err := a.accounts.Profile(c.Request.Context(), auth.Current(c))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ownAccount(user))
}

func (a *AdminModule) updateSettings(c *gin.Context) {
	var in account.ProfileInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	user, err := a.accounts.UpdateProfile(c.Request.Context(), auth.Current(c), in)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ownAccount(user))
}

func (a *AdminModule) changePassword(c *gin.Context) {
	var in account.ChangePasswordInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	if err := a.accounts.ChangePassword(c.Request.Context(), auth.Current(c), in); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *AdminModule) notifications(c *gin.Context) {
	pref, err := a.accounts.Preferences(c.Request.Context(), auth.Current(c))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (a *AdminModule) updateNotifications(c *gin.Context) {
	var in account.PreferencesInput
	if err := common.Bind(c, &in); err != nil {
		common.WriteError(c, err)
		return
	}

	pref, err := a.accounts.UpdatePreferences(c.Request.Context(), auth.Current(c), in)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (a *AdminModule) deleteUser(c *gin.Context) {
	if err := a.accounts.DeleteUser(c.Request.Context(), auth.Current(c)); err != nil {
		common.WriteError(c, err)
		return
	}
	if err := auth.Logout(c); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
