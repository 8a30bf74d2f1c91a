package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"evcam/internal/config"
	"evcam/internal/controller"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	controller *controller.Controller
	slider     *WebSlider
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, ctrl *controller.Controller, slider *WebSlider) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		config:     cfg,
		engine:     engine,
		controller: ctrl,
		slider:     slider,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	handler := &Handler{
		config:     s.config,
		controller: s.controller,
		slider:     s.slider,
	}

	// 露出制御ページ
	s.engine.GET("/", handler.Index)

	// ヘルスチェックエンドポイント
	s.engine.GET("/health", handler.HealthCheck)

	// APIエンドポイント
	api := s.engine.Group("/api")
	{
		api.GET("/status", handler.GetStatus)
		api.GET("/exposure", handler.GetExposure)
		api.PUT("/exposure", handler.PutExposure)
		api.POST("/switch", handler.SwitchCamera)
		api.POST("/capture", handler.CapturePhoto)
		api.GET("/stream", handler.GetStream)
	}
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
