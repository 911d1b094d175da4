package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/questlog/api/transport"
	"github.com/fastygo/questlog/pkg/httpcontext"
	"github.com/fastygo/questlog/repository"
	usersUC "github.com/fastygo/questlog/usecase/users"
)

type LeaderboardHandler struct {
	baseHandler
	uc *usersUC.UseCase
}

func NewLeaderboardHandler(uc *usersUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Leaderboard ordered by xp
// @Tags leaderboard
// @Produce json
// @Router /api/leaderboard [get]
func (h *LeaderboardHandler) List(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	limit := args.GetUintOrZero("limit")
	offset := args.GetUintOrZero("offset")

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	users, err := h.uc.Leaderboard(stdCtx, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccessMeta(ctx, http.StatusOK, users, transport.Pagination{
		Limit:  repository.ClampLimit(limit, usersUC.DefaultLeaderboardLimit),
		Offset: offset,
	})
}
