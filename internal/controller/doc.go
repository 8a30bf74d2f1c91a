// Package controller カメラセッションのライフサイクルと露出スライダーの結合を担う
//
// # 責務
// - 権限確認 → プロバイダー取得 → ユースケースバインド → UI同期 の逐次駆動
// - レンズ向き切り替え時の再バインド（最大1セッションの不変条件を維持）
// - 露出スライダーとアクティブセッションの露出コントロールの結合
// - バックグラウンドワーカーによる静止画撮影と保存
//
// # 仕様
// - 状態遷移は looplab/fsm で管理する:
//   unstarted → awaiting_permission → provider_loading → bound
//   → rebinding → bound → ... → destroyed
//   （awaiting_permission からは終端状態 permission_denied に遷移しうる）
// - 全ての操作はコントローラーのミューテックスで直列化される
// - スライダーのリスナーはバインドごとに作り直され、再利用されない
// - 撮影は専用ワーカーで実行され、バインド状態を変更しない
package controller
