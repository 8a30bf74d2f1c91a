// Package permission カメラデバイスへのアクセス権限の確認を担う
//
// # 責務
// - 必要な権限セットの一括リクエスト
// - 権限ごとの許可/拒否の判定
//
// # 仕様
// - Service: 権限セットを受け取り、権限ごとの判定結果を返す
// - DeviceAccessService: デバイスノードのオープン可否で権限を判定する
//   （videoグループに属していない場合などに拒否となる）
package permission

import (
	"context"
	"os"
)

// Permission は必要な能力の識別子を表す
type Permission string

// PermissionCamera はカメラデバイスへのアクセス権限
const PermissionCamera Permission = "camera"

// Service は権限リクエストを担うインターフェース
type Service interface {
	// Request は指定された権限セットをリクエストし、
	// 権限ごとの許可/拒否を返す
	Request(ctx context.Context, perms []Permission) (map[Permission]bool, error)
}

// DeviceAccessService はデバイスノードへのアクセス可否で権限を判定する
type DeviceAccessService struct {
	devices []string // 確認対象のデバイスパス
}

// NewDeviceAccessService は新しいDeviceAccessServiceを作成する
func NewDeviceAccessService(devices []string) *DeviceAccessService {
	return &DeviceAccessService{devices: devices}
}

// Request は権限セットをリクエストする
// カメラ権限は対象デバイスのいずれかがオープンできれば許可とする
func (s *DeviceAccessService) Request(ctx context.Context, perms []Permission) (map[Permission]bool, error) {
	results := make(map[Permission]bool, len(perms))
	for _, perm := range perms {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		switch perm {
		case PermissionCamera:
			results[perm] = s.canAccessAnyDevice()
		default:
			// 未知の権限は拒否として扱う
			results[perm] = false
		}
	}

	return results, nil
}

// canAccessAnyDevice はいずれかのデバイスノードがオープンできるかチェックする
func (s *DeviceAccessService) canAccessAnyDevice() bool {
	for _, device := range s.devices {
		file, err := os.OpenFile(device, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		_ = file.Close()
		return true
	}
	return false
}

// MockService はテスト用のモックService実装
type MockService struct {
	results map[Permission]bool
	calls   int
}

// NewMockService は新しいMockServiceを作成する
func NewMockService(results map[Permission]bool) *MockService {
	return &MockService{results: results}
}

// Request はモックの判定結果を返す
func (m *MockService) Request(_ context.Context, perms []Permission) (map[Permission]bool, error) {
	m.calls++

	results := make(map[Permission]bool, len(perms))
	for _, perm := range perms {
		results[perm] = m.results[perm]
	}
	return results, nil
}

// Calls はRequestが呼ばれた回数を返す
func (m *MockService) Calls() int {
	return m.calls
}
