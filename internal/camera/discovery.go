package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)

	// ResolveFacings はレンズ向きごとのデバイスパスを解決する
	ResolveFacings(ctx context.Context) (map[LensFacing]string, error)
}

// LinuxDiscovery はLinux環境でのカメラデバイス検出を実装する
type LinuxDiscovery struct{}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
func NewLinuxDiscovery() Discovery {
	return &LinuxDiscovery{}
}

// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	var devices []string
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if d.IsDeviceAvailable(ctx, match) {
			devices = append(devices, match)
		}
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	if _, err := os.Stat(device); os.IsNotExist(err) {
		return false
	}

	// デバイスファイルの読み取り権限チェック
	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	return isVideoDevice(device)
}

// GetDeviceInfo はデバイスの詳細情報を取得する
func (d *LinuxDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", device)
	}

	name := d.getV4L2DeviceName(device)
	if name == "" {
		name = fmt.Sprintf("カメラ %d", extractDeviceNumber(device))
	}

	return &DeviceInfo{
		Device: device,
		Name:   name,
		Facing: classifyFacing(name, extractDeviceNumber(device)),
	}, nil
}

// ResolveFacings はレンズ向きごとのデバイスパスを解決する
// 向きが判定できない場合、最初のデバイスを背面、次を前面として扱う
func (d *LinuxDiscovery) ResolveFacings(ctx context.Context) (map[LensFacing]string, error) {
	devices, err := d.ScanDevices(ctx)
	if err != nil {
		return nil, err
	}

	facings := make(map[LensFacing]string)
	for _, device := range devices {
		info, err := d.GetDeviceInfo(ctx, device)
		if err != nil {
			continue
		}
		if _, taken := facings[info.Facing]; !taken {
			facings[info.Facing] = device
			continue
		}
		// 同じ向きが埋まっている場合は空いている側に割り当てる
		other := info.Facing.Toggle()
		if _, taken := facings[other]; !taken {
			facings[other] = device
		}
	}

	return facings, nil
}

// getV4L2DeviceName はv4l2-ctlを使って実際のデバイス名を取得する
func (d *LinuxDiscovery) getV4L2DeviceName(device string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--info")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	// "Card type" の行からカメラ名を抽出
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Card type") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				if cardType := strings.TrimSpace(parts[1]); cardType != "" {
					return cardType
				}
			}
		}
	}

	return ""
}

// classifyFacing はデバイス名からレンズ向きを判定する
// 名前で判定できない場合はデバイス番号で推定する（偶数=背面、奇数=前面）
func classifyFacing(name string, deviceNum int) LensFacing {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "front") || strings.Contains(lower, "user") {
		return LensFacingFront
	}
	if strings.Contains(lower, "back") || strings.Contains(lower, "rear") || strings.Contains(lower, "world") {
		return LensFacingBack
	}

	if deviceNum%2 == 0 {
		return LensFacingBack
	}
	return LensFacingFront
}

// isVideoDevice はデバイスパスがV4L2デバイスのパターンかチェックする
func isVideoDevice(device string) bool {
	matched, _ := regexp.MatchString(`^/dev/video\d+$`, device)
	return matched
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	re := regexp.MustCompile(`video(\d+)`)
	matches := re.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}

	return num
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices     []string
	deviceInfos map[string]*DeviceInfo
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(infos []DeviceInfo) *MockDiscovery {
	m := &MockDiscovery{
		deviceInfos: make(map[string]*DeviceInfo),
	}
	for i := range infos {
		info := infos[i]
		m.devices = append(m.devices, info.Device)
		m.deviceInfos[info.Device] = &info
	}
	return m
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	return m.devices, nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	_, exists := m.deviceInfos[device]
	return exists
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(_ context.Context, device string) (*DeviceInfo, error) {
	info, exists := m.deviceInfos[device]
	if !exists {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}

	// コピーを返す
	result := *info
	return &result, nil
}

// ResolveFacings はモックデバイスのレンズ向きを解決する
func (m *MockDiscovery) ResolveFacings(ctx context.Context) (map[LensFacing]string, error) {
	facings := make(map[LensFacing]string)
	for _, device := range m.devices {
		info := m.deviceInfos[device]
		if _, taken := facings[info.Facing]; !taken {
			facings[info.Facing] = device
		}
	}
	return facings, nil
}
