package permission

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDeviceAccessServiceGranted(t *testing.T) {
	ctx := context.Background()

	// オープン可能なファイルをデバイスノードの代わりに使う
	device := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(device, []byte{}, 0644); err != nil {
		t.Fatalf("Failed to create device file: %v", err)
	}

	service := NewDeviceAccessService([]string{device})
	results, err := service.Request(ctx, []Permission{PermissionCamera})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if !results[PermissionCamera] {
		t.Error("Expected camera permission to be granted")
	}
}

func TestDeviceAccessServiceDenied(t *testing.T) {
	ctx := context.Background()

	service := NewDeviceAccessService([]string{"/nonexistent/video0"})
	results, err := service.Request(ctx, []Permission{PermissionCamera})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if results[PermissionCamera] {
		t.Error("Expected camera permission to be denied")
	}
}

func TestDeviceAccessServiceAnyDevice(t *testing.T) {
	ctx := context.Background()

	// 1つでもオープン可能なデバイスがあれば許可される
	device := filepath.Join(t.TempDir(), "video1")
	if err := os.WriteFile(device, []byte{}, 0644); err != nil {
		t.Fatalf("Failed to create device file: %v", err)
	}

	service := NewDeviceAccessService([]string{"/nonexistent/video0", device})
	results, err := service.Request(ctx, []Permission{PermissionCamera})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if !results[PermissionCamera] {
		t.Error("Expected camera permission to be granted")
	}
}

func TestDeviceAccessServiceUnknownPermission(t *testing.T) {
	ctx := context.Background()

	service := NewDeviceAccessService(nil)
	results, err := service.Request(ctx, []Permission{Permission("microphone")})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if results[Permission("microphone")] {
		t.Error("Expected unknown permission to be denied")
	}
}

func TestMockService(t *testing.T) {
	ctx := context.Background()

	service := NewMockService(map[Permission]bool{
		PermissionCamera: true,
	})

	results, err := service.Request(ctx, []Permission{PermissionCamera})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if !results[PermissionCamera] {
		t.Error("Expected camera permission to be granted")
	}
	if service.Calls() != 1 {
		t.Errorf("Expected 1 call, got %d", service.Calls())
	}
}
