package security

import (
	"strings"
	"time"

	"finwatch/internal/models"
	"finwatch/internal/useragent"
)

// Anomaly flag names, recorded in audit payloads and locked reasons.
const (
	FlagIPChangeSignificant    = "ip_change_significant"
	FlagBrowserChange          = "browser_change"
	FlagPlatformChange         = "platform_change"
	FlagDeviceTypeChange       = "device_type_change"
	FlagRapidAttemptsAutomated = "rapid_attempts_automated"
	FlagUnusualHourPattern     = "unusual_hour_pattern"
)

// RiskLevel classifies a set of anomaly flags. The level only influences
// block duration and audit payloads, it never blocks a login by itself.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Attempts arriving this quickly after a lock are treated as automated.
const rapidAttemptWindow = 5 * time.Second

// Hours (inclusive) considered unusual for a historically daytime user.
const (
	unusualHourStart = 2
	unusualHourEnd   = 5
)

// DetectAnomalies compares the current client context and timestamp against
// the account's last-known login context. An account with no prior login has
// nothing to compare against, so the result is always empty.
func DetectAnomalies(user *models.User, client models.ClientContext, now time.Time) []string {
	if !user.HasLoggedIn() {
		return nil
	}

	last := user.LastLogin
	var flags []string

	if ipNetworkChanged(last.IPPublic, client.IPPublic) {
		flags = append(flags, FlagIPChangeSignificant)
	}
	if last.Browser != "" && client.Browser != "" && last.Browser != client.Browser {
		flags = append(flags, FlagBrowserChange)
	}
	if last.Platform != "" && client.Platform != "" && last.Platform != client.Platform {
		flags = append(flags, FlagPlatformChange)
	}
	if last.UserAgent != "" && client.UserAgent != "" &&
		useragent.DeviceType(last.UserAgent) != useragent.DeviceType(client.UserAgent) {
		flags = append(flags, FlagDeviceTypeChange)
	}
	if user.FailedLoginAttempts > 0 && user.LockedAt != nil && now.Sub(*user.LockedAt) < rapidAttemptWindow {
		flags = append(flags, FlagRapidAttemptsAutomated)
	}
	if isUnusualHour(now.Hour()) && user.LastLoginAt != nil && !isUnusualHour(user.LastLoginAt.Hour()) {
		flags = append(flags, FlagUnusualHourPattern)
	}

	return flags
}

// ClassifyRisk maps a flag set to a risk level. Rapid automated attempts and
// unusual-hour activity are treated as high on their own.
func ClassifyRisk(flags []string) RiskLevel {
	for _, flag := range flags {
		if flag == FlagRapidAttemptsAutomated || flag == FlagUnusualHourPattern {
			return RiskHigh
		}
	}
	switch {
	case len(flags) >= 3:
		return RiskHigh
	case len(flags) == 2:
		return RiskMedium
	case len(flags) == 1:
		return RiskLow
	}
	return RiskNone
}

func isUnusualHour(hour int) bool {
	return hour >= unusualHourStart && hour <= unusualHourEnd
}

// ipNetworkChanged compares the first two octets of two IPv4 addresses, a
// coarse "different network" heuristic tolerant of same-subnet reassignment.
// Non-IPv4 addresses fall back to a full string comparison.
func ipNetworkChanged(last, current string) bool {
	if last == "" || current == "" {
		return false
	}
	lastOctets := strings.SplitN(last, ".", 3)
	currentOctets := strings.SplitN(current, ".", 3)
	if len(lastOctets) < 3 || len(currentOctets) < 3 {
		return last != current
	}
	return lastOctets[0] != currentOctets[0] || lastOctets[1] != currentOctets[1]
}
