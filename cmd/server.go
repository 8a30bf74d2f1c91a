// Package main はevcamサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"evcam/internal/camera"
	"evcam/internal/config"
	"evcam/internal/controller"
	"evcam/internal/permission"
	"evcam/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host        = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port        = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		backDevice  = flag.String("back-device", "", "背面カメラのデバイスパス")
		frontDevice = flag.String("front-device", "", "前面カメラのデバイスパス")
		photoDir    = flag.String("photo-dir", "", "写真の保存先ディレクトリ (デフォルト: photos)")
		help        = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("evcam")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *backDevice != "" {
		cfg.Camera.BackDevice = *backDevice
	}
	if *frontDevice != "" {
		cfg.Camera.FrontDevice = *frontDevice
	}
	if *photoDir != "" {
		cfg.Capture.OutputDir = *photoDir
	}

	ctx := context.Background()

	// レンズ向きごとのデバイスを解決する
	devices := make(map[camera.LensFacing]string)
	if cfg.Camera.BackDevice != "" {
		devices[camera.LensFacingBack] = cfg.Camera.BackDevice
	}
	if cfg.Camera.FrontDevice != "" {
		devices[camera.LensFacingFront] = cfg.Camera.FrontDevice
	}
	if len(devices) == 0 {
		discovery := camera.NewLinuxDiscovery()
		devices, err = discovery.ResolveFacings(ctx)
		if err != nil {
			log.Fatalf("カメラデバイスの解決に失敗しました: %v", err)
		}
	}

	paths := make([]string, 0, len(devices))
	for _, path := range devices {
		paths = append(paths, path)
	}

	// コントローラーを作成して開始
	slider := server.NewWebSlider()
	ctrl := controller.New(controller.Config{
		ProviderFunc: func(_ context.Context) (camera.Provider, error) {
			return camera.NewV4L2Provider(devices, cfg.Camera.FPS), nil
		},
		Permissions:   permission.NewDeviceAccessService(paths),
		Slider:        slider,
		DisplayWidth:  cfg.Display.Width,
		DisplayHeight: cfg.Display.Height,
		OutputDir:     cfg.Capture.OutputDir,
	})

	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("コントローラーの開始に失敗しました: %v", err)
	}

	// サーバーを起動
	srv := server.New(cfg, ctrl, slider)
	log.Printf("evcam サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}

	if err := ctrl.Destroy(); err != nil {
		log.Printf("コントローラーの終了に失敗しました: %v", err)
	}
}
