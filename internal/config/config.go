package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Camera  CameraConfig  `yaml:"camera"`
	Capture CaptureConfig `yaml:"capture"`
	Display DisplayConfig `yaml:"display"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	// レンズ向きごとのデバイスパス（空の場合は自動検出）
	BackDevice  string `yaml:"back_device"`  // 背面カメラのデバイスパス
	FrontDevice string `yaml:"front_device"` // 前面カメラのデバイスパス

	FPS int `yaml:"fps"` // フレームレート
}

// CaptureConfig は静止画撮影の設定
type CaptureConfig struct {
	OutputDir string `yaml:"output_dir"` // 写真の保存先ディレクトリ
}

// DisplayConfig はアスペクト比選択に使うディスプレイ寸法の設定
type DisplayConfig struct {
	Width  int `yaml:"width"`  // ディスプレイ幅
	Height int `yaml:"height"` // ディスプレイ高さ
}

// Load は設定を読み込む
// デフォルト値 → 環境変数 → YAMLファイル（EVCAM_CONFIGで指定）の順に上書きする
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			BackDevice:  getEnvOrDefault("BACK_DEVICE", ""),
			FrontDevice: getEnvOrDefault("FRONT_DEVICE", ""),
			FPS:         getEnvAsIntOrDefault("CAMERA_FPS", 15),
		},
		Capture: CaptureConfig{
			OutputDir: getEnvOrDefault("PHOTO_DIR", "photos"),
		},
		Display: DisplayConfig{
			Width:  getEnvAsIntOrDefault("DISPLAY_WIDTH", 1080),
			Height: getEnvAsIntOrDefault("DISPLAY_HEIGHT", 1920),
		},
	}

	// YAMLファイルが指定されている場合は上書き
	if path := os.Getenv("EVCAM_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile はYAMLファイルから設定を読み込む
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("YAMLの解析に失敗: %w", err)
	}

	return nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if c.Camera.FPS <= 0 || c.Camera.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("無効なディスプレイ寸法: %dx%d", c.Display.Width, c.Display.Height)
	}

	if c.Capture.OutputDir == "" {
		return fmt.Errorf("写真の保存先ディレクトリが未設定です")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
