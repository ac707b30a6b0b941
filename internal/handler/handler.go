package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Service *service.MovieService
	Config  *config.Config
}

// NewHandler 创建处理器
func NewHandler(svc *service.MovieService, cfg *config.Config) *Handler {
	return &Handler{
		Service: svc,
		Config:  cfg,
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.Config.Version,
	})
}

// parseID 解析路径中的电影 ID，非法时直接返回 422
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusUnprocessableEntity, "invalid movie id")
		return uuid.Nil, false
	}
	return id, true
}

// respondError 把服务层错误映射为 HTTP 响应
func respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, "movie not found")
	case errors.Is(err, service.ErrInvalidVectorType):
		utils.Error(c, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("[Handler] %s 失败: %v", op, err)
		utils.InternalServerError(c, "")
	}
}
