package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard-api/services"
)

type PreferenceController struct {
	preferences *services.PreferenceService
}

func NewPreferenceController(preferences *services.PreferenceService) *PreferenceController {
	return &PreferenceController{preferences: preferences}
}

// GET /api/v1/notification-preferences
func (ctl *PreferenceController) Get(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	pref, err := ctl.preferences.EnsureDefaults(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preference": pref})
}

// PUT /api/v1/notification-preferences
func (ctl *PreferenceController) Update(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.PreferenceUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	pref, err := ctl.preferences.Update(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "preference": pref})
}
