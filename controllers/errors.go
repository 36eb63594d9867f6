package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard-api/middleware"
	"taskboard-api/services"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotificationForbidden),
		errors.Is(err, services.ErrActivityForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrSubjectNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrPaymentOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnknownEventKind),
		errors.Is(err, services.ErrSubjectMismatch),
		errors.Is(err, services.ErrInvalidDigestPeriod),
		errors.Is(err, services.ErrUnsupportedAction):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrReportAlreadyResolved):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requireUser(c *gin.Context) (uint, bool) {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return uid, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}
