package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard-api/middleware"
	"taskboard-api/services"
	"taskboard-api/utils"
)

type NotificationController struct {
	notifications *services.NotificationService
	hub           *services.Hub
	heartbeat     time.Duration
}

func NewNotificationController(notifications *services.NotificationService, hub *services.Hub) *NotificationController {
	return &NotificationController{notifications: notifications, hub: hub, heartbeat: 25 * time.Second}
}

// GET /api/v1/notifications?limit=&offset=&unreadOnly=
func (ctl *NotificationController) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	opts := services.ListOptions{}
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query("limit"))); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query("offset"))); err == nil {
		opts.Offset = v
	}
	unreadOnly := strings.TrimSpace(c.Query("unreadOnly"))
	opts.UnreadOnly = unreadOnly == "1" || strings.EqualFold(unreadOnly, "true")

	items, err := ctl.notifications.List(c.Request.Context(), uid, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/v1/notifications/counter
func (ctl *NotificationController) Counter(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := ctl.notifications.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

// PATCH /api/v1/notifications/:id/read
func (ctl *NotificationController) MarkRead(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	n, err := ctl.notifications.MarkRead(c.Request.Context(), uid, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "notification": n})
}

// PATCH /api/v1/notifications/read-all
func (ctl *NotificationController) MarkAllRead(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	updated, err := ctl.notifications.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": updated})
}

// DELETE /api/v1/notifications/:id
func (ctl *NotificationController) Delete(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.notifications.Delete(c.Request.Context(), uid, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/v1/notifications/stream
// Server-Sent Events: one "notification" event per push, "ping" on idle.
func (ctl *NotificationController) Stream(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	topic := utils.NormalizeEmail(middleware.CurrentEmail(c))
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account has no email"})
		return
	}

	id, messages, cancel := ctl.hub.Subscribe(topic)
	defer cancel()
	log := logrus.WithFields(logrus.Fields{"subscriber": id, "topic": topic})
	log.Debug("push stream opened")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(ctl.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("notification", string(msg))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
	log.Debug("push stream closed")
}
