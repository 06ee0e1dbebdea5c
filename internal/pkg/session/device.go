package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Device types stored on user_sessions.device_type.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

const sessionIDBytes = 16

var iosPattern = regexp.MustCompile(`(?i)iPhone|iPad|iPod`)
var androidPattern = regexp.MustCompile(`(?i)Android`)

// DeviceInfo is the result of classifying a user agent.
type DeviceInfo struct {
	Name string `json:"device_name"`
	Type string `json:"device_type"`
}

// NewSessionID returns 16 random bytes, hex encoded.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ParseUserAgent classifies a user agent with plain substring checks.
// Mobile markers win over tablet markers, so an iPad UA that also says
// "Mobile" is reported as a mobile iOS device.
func ParseUserAgent(ua string) DeviceInfo {
	info := DeviceInfo{Name: "Unknown", Type: DeviceUnknown}
	if ua == "" {
		return info
	}

	switch {
	case strings.Contains(ua, "Mobile") || strings.Contains(ua, "Android"):
		info.Type = DeviceMobile
		if iosPattern.MatchString(ua) {
			info.Name = "iOS Device"
		} else if androidPattern.MatchString(ua) {
			info.Name = "Android Device"
		}
	case strings.Contains(ua, "Tablet") || strings.Contains(ua, "iPad"):
		info.Type = DeviceTablet
		info.Name = "Tablet"
	default:
		info.Type = DeviceDesktop
		switch {
		case strings.Contains(ua, "Windows"):
			info.Name = "Windows PC"
		case strings.Contains(ua, "Macintosh"):
			info.Name = "Mac"
		case strings.Contains(ua, "Linux"):
			info.Name = "Linux"
		}
	}

	return info
}
