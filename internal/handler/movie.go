package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/utils"
)

// CreateMovie 创建电影
func (h *Handler) CreateMovie(c *gin.Context) {
	var req model.MovieCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, err)
		return
	}

	movie, err := h.Service.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "创建电影", err)
		return
	}

	if sub := middleware.GetSubject(c); sub != "" {
		log.Printf("[Handler] %s 创建电影 %s", sub, movie.ID)
	}
	utils.Success(c, movie)
}

// GetMovie 电影详情
func (h *Handler) GetMovie(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	movie, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "获取电影", err)
		return
	}
	utils.Success(c, movie)
}

// ListMovies 分页列表，支持类型、年份、导演、评分筛选
func (h *Handler) ListMovies(c *gin.Context) {
	var filter model.MovieFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ValidationError(c, err)
		return
	}

	page, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "电影列表", err)
		return
	}
	utils.Success(c, page)
}

// SearchMovies 关键词搜索
func (h *Handler) SearchMovies(c *gin.Context) {
	var query model.TextSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ValidationError(c, err)
		return
	}

	page, err := h.Service.SearchText(c.Request.Context(), query)
	if err != nil {
		respondError(c, "关键词搜索", err)
		return
	}
	utils.Success(c, page)
}

// SimilarMovies 相似电影
func (h *Handler) SimilarMovies(c *gin.Context) {
	var query model.SimilarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ValidationError(c, err)
		return
	}
	// binding 已校验过格式，这里只做类型转换
	id, err := uuid.Parse(query.MovieID)
	if err != nil {
		utils.Error(c, http.StatusUnprocessableEntity, "invalid movie_id")
		return
	}
	kind, err := model.ParseVectorKind(query.VectorType)
	if err != nil {
		utils.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	similar, err := h.Service.FindSimilar(c.Request.Context(), id, query.Limit, kind)
	if err != nil {
		respondError(c, "相似电影", err)
		return
	}
	utils.Success(c, similar)
}

// UpdateMovie 部分更新
func (h *Handler) UpdateMovie(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.MovieUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(c, err)
		return
	}

	movie, err := h.Service.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "更新电影", err)
		return
	}
	utils.Success(c, movie)
}

// DeleteMovie 删除电影
func (h *Handler) DeleteMovie(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "删除电影", err)
		return
	}

	if sub := middleware.GetSubject(c); sub != "" {
		log.Printf("[Handler] %s 删除电影 %s", sub, id)
	}
	utils.SuccessWithMessage(c, "movie deleted", gin.H{"message": "Movie deleted successfully"})
}
