package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard-api/services"
	"taskboard-api/utils"
)

// InternalEventController receives business occurrences from other services.
type InternalEventController struct {
	events     *services.EventService
	moderation *services.ModerationService
	payments   *services.PaymentService
}

func NewInternalEventController(events *services.EventService, moderation *services.ModerationService, payments *services.PaymentService) *InternalEventController {
	return &InternalEventController{events: events, moderation: moderation, payments: payments}
}

func respondDispatch(c *gin.Context, report services.DispatchReport, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

type taskCommentedReq struct {
	AuthorID  uint   `json:"author_id" binding:"required"`
	CommentID uint   `json:"comment_id" binding:"required"`
	Body      string `json:"body" binding:"required"`
}

type actorReq struct {
	ActorID uint `json:"actor_id" binding:"required"`
}

type taskAssignedReq struct {
	ActorID    uint `json:"actor_id" binding:"required"`
	AssigneeID uint `json:"assignee_id" binding:"required"`
}

type taskDueSoonReq struct {
	DueIn string `json:"due_in"`
}

type memberAddedReq struct {
	ActorID  uint `json:"actor_id" binding:"required"`
	MemberID uint `json:"member_id" binding:"required"`
}

type joinReceivedReq struct {
	RequesterID uint `json:"requester_id" binding:"required"`
}

type joinReviewedReq struct {
	ActorID     uint   `json:"actor_id" binding:"required"`
	RequesterID uint   `json:"requester_id" binding:"required"`
	Reason      string `json:"reason"`
}

type reportActionReq struct {
	AdminID uint   `json:"admin_id" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Note    string `json:"note"`
}

type paymentWebhookReq struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return false
	}
	return true
}

// POST /api/v1/internal/events/tasks/:taskId/commented
func (ctl *InternalEventController) TaskCommented(c *gin.Context) {
	taskID, ok := uintParam(c, "taskId")
	if !ok {
		return
	}
	var req taskCommentedReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.TaskCommented(c.Request.Context(), req.AuthorID, taskID, req.CommentID, utils.SanitizeInput(req.Body))
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/tasks/:taskId/assigned
func (ctl *InternalEventController) TaskAssigned(c *gin.Context) {
	taskID, ok := uintParam(c, "taskId")
	if !ok {
		return
	}
	var req taskAssignedReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.TaskAssigned(c.Request.Context(), req.ActorID, taskID, req.AssigneeID)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/tasks/:taskId/due-soon
func (ctl *InternalEventController) TaskDueSoon(c *gin.Context) {
	taskID, ok := uintParam(c, "taskId")
	if !ok {
		return
	}
	var req taskDueSoonReq
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	report, err := ctl.events.TaskDueSoon(c.Request.Context(), taskID, req.DueIn)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/tasks/:taskId/followed
func (ctl *InternalEventController) TaskFollowed(c *gin.Context) {
	taskID, ok := uintParam(c, "taskId")
	if !ok {
		return
	}
	var req actorReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.TaskFollowed(c.Request.Context(), req.ActorID, taskID)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/projects/:projectId/created
func (ctl *InternalEventController) ProjectCreated(c *gin.Context) {
	projectID, ok := uintParam(c, "projectId")
	if !ok {
		return
	}
	var req actorReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.ProjectCreated(c.Request.Context(), req.ActorID, projectID)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/projects/:projectId/members
func (ctl *InternalEventController) MemberAdded(c *gin.Context) {
	projectID, ok := uintParam(c, "projectId")
	if !ok {
		return
	}
	var req memberAddedReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.MemberAdded(c.Request.Context(), req.ActorID, projectID, req.MemberID)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/projects/:projectId/archived
func (ctl *InternalEventController) ProjectArchived(c *gin.Context) {
	projectID, ok := uintParam(c, "projectId")
	if !ok {
		return
	}
	var req actorReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.ProjectArchived(c.Request.Context(), req.ActorID, projectID)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/projects/:projectId/join-requests/:requestId/received
func (ctl *InternalEventController) JoinRequestReceived(c *gin.Context) {
	projectID, ok := uintParam(c, "projectId")
	if !ok {
		return
	}
	requestID, ok := uintParam(c, "requestId")
	if !ok {
		return
	}
	var req joinReceivedReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.events.JoinRequestReceived(c.Request.Context(), req.RequesterID, projectID, requestID)
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/events/projects/:projectId/join-requests/:requestId/approved
func (ctl *InternalEventController) JoinRequestApproved(c *gin.Context) {
	ctl.joinReviewed(c, true)
}

// POST /api/v1/internal/events/projects/:projectId/join-requests/:requestId/rejected
func (ctl *InternalEventController) JoinRequestRejected(c *gin.Context) {
	ctl.joinReviewed(c, false)
}

func (ctl *InternalEventController) joinReviewed(c *gin.Context, approved bool) {
	projectID, ok := uintParam(c, "projectId")
	if !ok {
		return
	}
	requestID, ok := uintParam(c, "requestId")
	if !ok {
		return
	}
	var req joinReviewedReq
	if !bind(c, &req) {
		return
	}

	var (
		report services.DispatchReport
		err    error
	)
	if approved {
		report, err = ctl.events.JoinRequestApproved(c.Request.Context(), req.ActorID, projectID, requestID, req.RequesterID)
	} else {
		report, err = ctl.events.JoinRequestRejected(c.Request.Context(), req.ActorID, projectID, requestID, req.RequesterID, utils.SanitizeInput(req.Reason))
	}
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/reports/:reportId/action
func (ctl *InternalEventController) ActionReport(c *gin.Context) {
	reportID, ok := uintParam(c, "reportId")
	if !ok {
		return
	}
	var req reportActionReq
	if !bind(c, &req) {
		return
	}
	action, err := services.ParseReportAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := ctl.moderation.ActionReport(c.Request.Context(), req.AdminID, reportID, action, utils.SanitizeInput(req.Note))
	respondDispatch(c, report, err)
}

// POST /api/v1/internal/payments/webhook
func (ctl *InternalEventController) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookReq
	if !bind(c, &req) {
		return
	}
	report, err := ctl.payments.HandleWebhook(c.Request.Context(), req.OrderID, req.Status)
	respondDispatch(c, report, err)
}
