package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard-api/models"
	"taskboard-api/services"
)

var activityEntityTypes = map[string]string{
	"tasks":          models.EntityTask,
	"projects":       models.EntityProject,
	"join-requests":  models.EntityJoinRequest,
	"reports":        models.EntityUserReport,
	"payment-orders": models.EntityPaymentOrder,
}

type ActivityController struct {
	activity *services.ActivityLog
	access   *services.ActivityAccess
}

func NewActivityController(activity *services.ActivityLog, access *services.ActivityAccess) *ActivityController {
	return &ActivityController{activity: activity, access: access}
}

// GET /api/v1/activities/:entityType/:entityId
// entityType is the plural path form, e.g. "tasks" or "reports".
func (ctl *ActivityController) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	entityType, ok := activityEntityTypes[c.Param("entityType")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
		return
	}
	entityID, ok := uintParam(c, "entityId")
	if !ok {
		return
	}

	if err := ctl.access.CanView(c.Request.Context(), uid, entityType, entityID); err != nil {
		respondError(c, err)
		return
	}

	items, err := ctl.activity.Query(c.Request.Context(), entityType, entityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
