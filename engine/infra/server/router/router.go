package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/pipeline"
	"github.com/gin-gonic/gin"
)

// ResponseMode selects how a run request is answered.
const (
	ResponseModeStreaming = "streaming"
	ResponseModeBlocking  = "blocking"
)

// RunRequest is the body of a generation run request. AppMode and InvokeFrom
// are resolved from the route and credentials, not the body.
type RunRequest struct {
	AppMode        core.AppMode    `json:"-"`
	InvokeFrom     core.InvokeFrom `json:"-"`
	Query          string          `json:"query"`
	Inputs         map[string]any  `json:"inputs"`
	User           string          `json:"user" binding:"required"`
	ConversationID string          `json:"conversation_id"`
	ResponseMode   string          `json:"response_mode"`
}

// StopRequest is the body of a stop request. The user must match the one that
// started the task; the stop-flag key encodes both.
type StopRequest struct {
	User string `json:"user" binding:"required"`
}

// Service is the application boundary the router talks to. StartTask spawns
// the producer for the request and returns the pipeline that will consume its
// queue; StopTask raises the cross-process stop flag.
type Service interface {
	StartTask(ctx context.Context, req *RunRequest) (*pipeline.TaskPipeline, error)
	StopTask(ctx context.Context, taskID core.ID, invokeFrom core.InvokeFrom, userID string) error
}

type handlers struct {
	svc Service
}

// Register mounts the generation endpoints on the engine.
func Register(r gin.IRouter, svc Service) {
	h := &handlers{svc: svc}
	v1 := r.Group("/v1")
	v1.POST("/apps/:appMode/run", h.run)
	v1.POST("/tasks/:taskID/stop", h.stop)
}

func (h *handlers) run(c *gin.Context) {
	appMode, ok := parseAppMode(c.Param("appMode"))
	if !ok {
		respondError(c, http.StatusBadRequest, core.ErrCodeInvokeBadRequest,
			"unknown app mode: "+c.Param("appMode"))
		return
	}
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, core.ErrCodeInvokeBadRequest, err.Error())
		return
	}
	req.AppMode = appMode
	req.InvokeFrom = invokeFromRequest(c)
	if req.ResponseMode == "" {
		req.ResponseMode = ResponseModeStreaming
	}
	p, err := h.svc.StartTask(c.Request.Context(), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if req.ResponseMode == ResponseModeBlocking {
		h.runBlocking(c, p)
		return
	}
	h.runStreaming(c, p)
}

func (h *handlers) runBlocking(c *gin.Context, p *pipeline.TaskPipeline) {
	resp, err := p.ProcessBlocking(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) stop(c *gin.Context) {
	taskID, err := core.ParseID(c.Param("taskID"))
	if err != nil {
		respondError(c, http.StatusBadRequest, core.ErrCodeInvokeBadRequest, "invalid task id")
		return
	}
	var req StopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, core.ErrCodeInvokeBadRequest, err.Error())
		return
	}
	if err := h.svc.StopTask(c.Request.Context(), taskID, invokeFromRequest(c), req.User); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

func parseAppMode(raw string) (core.AppMode, bool) {
	switch mode := core.AppMode(raw); mode {
	case core.AppModeChat, core.AppModeAgentChat, core.AppModeCompletion, core.AppModeWorkflow:
		return mode, true
	default:
		return "", false
	}
}

// invokeFromRequest resolves the invoking surface from the request header,
// defaulting to the service API.
func invokeFromRequest(c *gin.Context) core.InvokeFrom {
	switch from := core.InvokeFrom(c.GetHeader("X-Invoke-From")); from {
	case core.InvokeFromWebApp, core.InvokeFromDebugger, core.InvokeFromExplore:
		return from
	default:
		return core.InvokeFromServiceAPI
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"code": code, "message": message})
}

// respondDomainError maps a domain error onto the HTTP surface, preserving the
// taxonomy code for clients.
func respondDomainError(c *gin.Context, err error) {
	var domainErr *core.Error
	if !errors.As(err, &domainErr) {
		respondError(c, http.StatusInternalServerError, core.ErrCodeUnknown, "internal server error")
		return
	}
	respondError(c, statusForCode(domainErr.Code), domainErr.Code, domainErr.Message)
}

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeInvokeBadRequest:
		return http.StatusBadRequest
	case core.ErrCodeInvokeAuthorization:
		return http.StatusUnauthorized
	case core.ErrCodeInvokeRateLimit, core.ErrCodeProviderQuotaExceeded:
		return http.StatusTooManyRequests
	case core.ErrCodeTaskStopped:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
