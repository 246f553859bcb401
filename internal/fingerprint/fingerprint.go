// Package fingerprint collects the device snapshot sent with install
// reports and click resolution.
package fingerprint

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/LinkForty/linkforty-go/internal/model"
)

// DeviceInfo is the device/environment introspection capability. All
// fields are static descriptive values; implementations must not block.
type DeviceInfo interface {
	UserAgent() string
	Platform() string
	PlatformVersion() string
	AppVersion() string
	Locale() string
	Timezone() string
	ScreenSize() (width, height int)
}

// Static is a fixed DeviceInfo for embedding applications and tests.
type Static struct {
	UA        string
	OS        string
	OSVersion string
	App       string
	Lang      string
	TZ        string
	Width     int
	Height    int
}

func (s Static) UserAgent() string       { return s.UA }
func (s Static) Platform() string        { return s.OS }
func (s Static) PlatformVersion() string { return s.OSVersion }
func (s Static) AppVersion() string      { return s.App }
func (s Static) Locale() string          { return s.Lang }
func (s Static) Timezone() string        { return s.TZ }
func (s Static) ScreenSize() (int, int)  { return s.Width, s.Height }

// Host derives device info from the running host. Screen size is unknown
// outside a UI context and reads as zero.
func Host(appVersion string) DeviceInfo {
	return Static{
		UA:        "linkforty-go/" + runtime.GOOS,
		OS:        runtime.GOOS,
		OSVersion: runtime.GOARCH,
		App:       appVersion,
		Lang:      localeFromEnv(),
		TZ:        time.Now().Location().String(),
	}
}

func localeFromEnv() string {
	for _, name := range []string{"LC_ALL", "LANG"} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if i := strings.IndexByte(v, '.'); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return "en-US"
}

// Collector snapshots FingerprintRecords from a DeviceInfo capability.
type Collector struct {
	device DeviceInfo
}

// NewCollector creates a Collector. device may be nil, in which case
// Collect fails and callers proceed without a fingerprint.
func NewCollector(device DeviceInfo) *Collector {
	return &Collector{device: device}
}

// Collect builds a fresh FingerprintRecord for the given attribution
// window. The record is never persisted.
func (c *Collector) Collect(_ context.Context, windowHours float64, deviceID string) (*model.FingerprintRecord, error) {
	if c == nil || c.device == nil {
		return nil, errors.New("no device info available")
	}
	w, h := c.device.ScreenSize()
	return &model.FingerprintRecord{
		UserAgent:              c.device.UserAgent(),
		Timezone:               c.device.Timezone(),
		Language:               c.device.Locale(),
		ScreenWidth:            w,
		ScreenHeight:           h,
		Platform:               c.device.Platform(),
		PlatformVersion:        c.device.PlatformVersion(),
		AppVersion:             c.device.AppVersion(),
		DeviceID:               deviceID,
		AttributionWindowHours: windowHours,
	}, nil
}
