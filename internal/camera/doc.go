// Package camera カメラプロバイダーとセッションの抽象化を担う
//
// # 責務
// - レンズ向き（前面/背面）ごとのカメラデバイス解決
// - ユースケース（プレビュー/静止画撮影）のバインドとセッション管理
// - 露出補正コントロール（現在値・範囲・ステップ）の読み書き
// - V4L2デバイスからのリアルタイム画像取得
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - レンズ向きを指定してカメラセッションをバインドしたい
// - バインド済みセッションの露出補正を読み書きしたい
// - プレビュー映像をストリーミングしたい
//
// # 仕様
// - Provider: ユースケースのバインド/アンバインドを担う（同時に1セッションのみ）
// - Session: 露出状態のスナップショットと露出インデックスの設定を提供
// - Discovery: V4L2デバイスの自動検出・実名取得・レンズ向き判定
// - バインドは go4vl 経由でV4L2デバイスを開き、露出補正コントロール
//   (V4L2_CID_AUTO_EXPOSURE_BIAS) のメタデータからExposureStateを導出する
//
// # 前提要件
//   - v4l-utils: カメラ名の取得に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
