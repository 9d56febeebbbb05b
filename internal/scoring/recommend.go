package scoring

import (
	"strings"

	"airtriage/internal/model"
)

// RecommendActions returns advisory attack suggestions for a target with the
// given score. Purely a lookup keyed on tier and association state; the
// orchestrator never acts on these itself.
func RecommendActions(score float64, deviceType string, associated bool) []string {
	var out []string
	switch {
	case score >= 85:
		if associated {
			out = append(out, "Deauth + Evil Twin", "MITM Attack", "Packet Capture")
		} else {
			out = append(out, "Evil Twin", "Karma Attack")
		}
		lower := strings.ToLower(deviceType)
		if strings.Contains(lower, "iot") || strings.Contains(lower, "camera") {
			out = append(out, "Exploit Known CVEs", "Default Credentials")
		}
	case score >= 70:
		if associated {
			out = append(out, "Deauth Attack", "Handshake Capture")
		} else {
			out = append(out, "Probe Response")
		}
	case score >= 50:
		if associated {
			out = append(out, "Passive Monitoring", "Handshake Capture")
		} else {
			out = append(out, "Probe Monitoring")
		}
	}
	return out
}

var priorityDescriptions = map[model.Priority]string{
	model.PriorityCritical: "High-value target - Easy attack",
	model.PriorityHigh:     "Valuable target - Attackable",
	model.PriorityMedium:   "Moderate target - Possible",
	model.PriorityLow:      "Low-value target - Difficult",
}

// Describe returns a short human-readable summary for presentation layers.
func Describe(priority model.Priority, deviceType string) string {
	desc, ok := priorityDescriptions[priority]
	if !ok {
		desc = "Unknown"
	}
	if deviceType != "" && !strings.EqualFold(deviceType, "unknown") {
		desc += " [" + deviceType + "]"
	}
	return desc
}
