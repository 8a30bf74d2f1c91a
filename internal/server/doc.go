// Package server は、HTTPサーバーと露出制御UIの配信を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// プレビューストリーミングの配信、露出スライダーAPIを担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理（ginを使用）
//   - 露出スライダーページの配信
//   - スライダー操作のコントローラーへの中継（WebSlider）
//   - MJPEGプレビューストリーミングの配信
//   - カメラ切り替え・撮影リクエストの受け付け
//
// 仕様:
//   - スライダーの範囲・値はコントローラーがバインドごとに構成する
//   - グレースフルシャットダウンに対応
package server
