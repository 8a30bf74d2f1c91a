package main

import (
	"context"
	"log"

	"evcam/internal/camera"
	"evcam/internal/config"
	"evcam/internal/controller"
	"evcam/internal/permission"
	"evcam/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	ctx := context.Background()

	// レンズ向きごとのデバイスを解決する（設定が優先、なければ自動検出）
	devices, err := resolveDevices(ctx, cfg)
	if err != nil {
		log.Fatalf("カメラデバイスの解決に失敗しました: %v", err)
	}

	// コントローラーを作成
	slider := server.NewWebSlider()
	ctrl := controller.New(controller.Config{
		ProviderFunc: func(_ context.Context) (camera.Provider, error) {
			return camera.NewV4L2Provider(devices, cfg.Camera.FPS), nil
		},
		Permissions:   permission.NewDeviceAccessService(devicePaths(devices)),
		Slider:        slider,
		DisplayWidth:  cfg.Display.Width,
		DisplayHeight: cfg.Display.Height,
		OutputDir:     cfg.Capture.OutputDir,
	})

	// コントローラーを開始（権限確認 → バインド → UI同期）
	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("コントローラーの開始に失敗しました: %v", err)
	}

	// サーバーを起動
	srv := server.New(cfg, ctrl, slider)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}

	// シャットダウン時にセッションとワーカーを解放する
	if err := ctrl.Destroy(); err != nil {
		log.Printf("コントローラーの終了に失敗しました: %v", err)
	}
}

// resolveDevices はレンズ向きごとのデバイスパスを決定する
func resolveDevices(ctx context.Context, cfg *config.Config) (map[camera.LensFacing]string, error) {
	devices := make(map[camera.LensFacing]string)
	if cfg.Camera.BackDevice != "" {
		devices[camera.LensFacingBack] = cfg.Camera.BackDevice
	}
	if cfg.Camera.FrontDevice != "" {
		devices[camera.LensFacingFront] = cfg.Camera.FrontDevice
	}

	if len(devices) > 0 {
		return devices, nil
	}

	discovery := camera.NewLinuxDiscovery()
	resolved, err := discovery.ResolveFacings(ctx)
	if err != nil {
		return nil, err
	}
	for facing, device := range resolved {
		log.Printf("検出されたカメラ: %s (%s)", device, facing)
	}
	return resolved, nil
}

// devicePaths はデバイスパスの一覧を返す
func devicePaths(devices map[camera.LensFacing]string) []string {
	paths := make([]string, 0, len(devices))
	for _, path := range devices {
		paths = append(paths, path)
	}
	return paths
}
