package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/embedding"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/metrics"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/router"
	"github.com/user/moviecatalog/internal/service"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置错误: %v", err)
	}

	// 初始化存储
	store, closeStore, err := repository.OpenStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	defer closeStore()
	if cfg.DatabaseURL == repository.MemoryURL {
		log.Println("使用内存存储，重启后数据丢失")
	}

	// 指标与向量生成
	m := metrics.New(nil)
	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		log.Fatalf("向量模型初始化失败: %v", err)
	}
	generator := embedding.NewGenerator(provider, cfg.Embedding.Dimension, m)
	log.Printf("向量模型: %s, 维度 %d", provider.Name(), cfg.Embedding.Dimension)

	svc := service.NewMovieService(store, generator, m)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 中间件
	r.Use(middleware.Logger(m))
	r.Use(middleware.Security())
	r.Use(middleware.CORS())

	h := handler.NewHandler(svc, cfg)
	router.RegisterRoutes(r, h, m)

	if cfg.AuthEnabled() {
		log.Println("写接口需要 Bearer Token")
	} else {
		log.Println("未设置 APP_SECRET，写接口不鉴权")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// 写入路径会同步调用向量模型
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.Embedding.Timeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Printf("服务器启动于 http://localhost:%s (version %s)", cfg.Port, cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("服务器强制关闭:", err)
	}

	log.Println("服务器已退出")
}
