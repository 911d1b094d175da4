package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/questlog/api/transport"
	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/pkg/httpcontext"
	"github.com/fastygo/questlog/pkg/logger"
	usersUC "github.com/fastygo/questlog/usecase/users"
)

type UserHandler struct {
	baseHandler
	uc *usersUC.UseCase
}

func NewUserHandler(uc *usersUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create user (idempotent by session identifier)
// @Tags users
// @Accept json
// @Produce json
// @Router /api/users [post]
func (h *UserHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.CreateUserRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.badRequest(ctx, "invalid payload")
		return
	}

	subject := httpcontext.SubjectFromRequest(ctx)
	if req.SessionIdentifier == "" {
		req.SessionIdentifier = subject
	}
	if subject != "" && req.SessionIdentifier != subject {
		h.respondError(ctx, domain.ErrForbidden)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reg, err := h.uc.Register(stdCtx, req.SessionIdentifier, domain.InitialProgress{
		XP:             req.XP,
		Level:          req.Level,
		TasksCompleted: req.TasksCompleted,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	status := http.StatusCreated
	if reg.Exists {
		status = http.StatusOK
	}
	logger.WithRequestID(stdCtx, h.logger).Debug("user registration handled",
		zap.String("user_id", reg.UserID),
		zap.Bool("exists", reg.Exists))
	h.respondSuccess(ctx, status, reg)
}

// @Summary Get user
// @Tags users
// @Produce json
// @Router /api/users/{id} [get]
func (h *UserHandler) Get(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.badRequest(ctx, "missing user id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Get(stdCtx, id, httpcontext.Subject(stdCtx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Overwrite user progress
// @Tags users
// @Accept json
// @Produce json
// @Router /api/users/{id} [put]
func (h *UserHandler) Update(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.badRequest(ctx, "missing user id")
		return
	}

	var req transport.UpdateUserRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.badRequest(ctx, "xp and tasks_completed must be numbers")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	applied, err := h.uc.UpdateProgress(stdCtx, id, httpcontext.Subject(stdCtx), req.ToUpdate())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.UpdateUserResponse{Applied: applied})
}
