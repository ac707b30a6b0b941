package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/metrics"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/utils"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, m *metrics.Metrics) {
	utils.RegisterFieldNames()

	r.GET("/health", h.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api/v1")

	// ==================== 只读接口 ====================
	movies := api.Group("/movies")
	{
		movies.GET("", h.ListMovies)
		movies.GET("/search/text", h.SearchMovies)
		movies.GET("/search/similar", h.SimilarMovies)
		movies.GET("/:id", h.GetMovie)
	}

	// ==================== 写接口（配置了 APP_SECRET 时需要鉴权）====================
	writes := api.Group("/movies")
	if h.Config.AuthEnabled() {
		writes.Use(middleware.RequireAuth(h.Config.AppSecret))
	}
	{
		writes.POST("", h.CreateMovie)
		writes.PUT("/:id", h.UpdateMovie)
		writes.DELETE("/:id", h.DeleteMovie)
	}
}
