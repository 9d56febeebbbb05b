package scoring

import (
	"math"
	"strings"

	"airtriage/internal/model"
	"airtriage/internal/normalize"
)

// Score rankings are additive: a device-type base, a manufacturer adjustment,
// then bounded bonuses for signal, activity, throughput, probing, and
// association. The tables below are ordered slices, not maps: the first
// substring match wins, so ranking stays deterministic for inputs that match
// more than one pattern.

type tableEntry struct {
	pattern string
	value   float64
}

var deviceTypeScores = []tableEntry{
	{"phone", 85},
	{"smartphone", 85},
	{"tablet", 80},
	{"laptop", 75},
	{"computer", 70},
	{"iot", 90},
	{"camera", 88},
	{"tv", 82},
	{"printer", 85},
	{"speaker", 87},
	{"watch", 78},
	{"gaming", 75},
	{"unknown", 50},
}

var manufacturerScores = []tableEntry{
	{"tp-link", 10},
	{"d-link", 12},
	{"netgear", 8},
	{"xiaomi", 15},
	{"huawei", 14},
	{"belkin", 10},
	{"hikvision", 20},
	{"dahua", 20},
	{"wyze", 15},
	{"ring", 12},
	{"samsung", 5},
	{"lg", 5},
	{"sony", 3},
	{"apple", -5},
	{"google", -3},
	{"microsoft", -2},
	{"unknown", 0},
}

const defaultBase = 50.0

// Score converts one observation into an ease/value score on [0, 100] and a
// priority tier. It is pure: identical observations always yield identical
// results, including the per-identifier uniqueness fraction. Malformed
// identifiers degrade to neutral sub-scores rather than failing the call.
func Score(obs model.Observation) model.ScoreResult {
	score := defaultBase

	deviceType := strings.ToLower(obs.DeviceType)
	for _, entry := range deviceTypeScores {
		if strings.Contains(deviceType, entry.pattern) {
			score = entry.value
			break
		}
	}

	manufacturer := strings.ToLower(obs.Manufacturer)
	for _, entry := range manufacturerScores {
		if entry.pattern == "" {
			continue
		}
		if strings.Contains(manufacturer, entry.pattern) {
			score += entry.value
			break
		}
	}

	score += signalBonus(obs.SignalDbm)
	score += activityBonus(obs.PacketCount)
	score += throughputBonus(obs.ThroughputKBs)
	score += probeBonus(len(obs.ProbedNetworks))

	if obs.AssociatedTarget != "" {
		score += 5.0
	} else {
		score += 3.0
	}

	if octets, err := normalize.Octets(obs.Identifier); err == nil {
		// Locally administered bit set means a randomized address, which
		// signals a privacy-aware device.
		if octets[0]&0x02 != 0 {
			score -= 5.0
		} else {
			score += 2.0
		}
		score += identifierFraction(octets)
	}

	score = math.Max(0, math.Min(100, score))
	score = math.Round(score*100) / 100

	return model.ScoreResult{Score: score, Priority: PriorityFor(score)}
}

// PriorityFor maps a score to its tier, evaluated highest tier first with
// inclusive lower bounds.
func PriorityFor(score float64) model.Priority {
	switch {
	case score >= 85:
		return model.PriorityCritical
	case score >= 70:
		return model.PriorityHigh
	case score >= 50:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// Stronger signal means an easier attack. Piecewise linear between the -30,
// -50, -70, and -90 dBm breakpoints.
func signalBonus(dbm int) float64 {
	switch {
	case dbm >= -30:
		return 20.0
	case dbm >= -50:
		return 20.0 - (math.Abs(float64(dbm))-30)*0.25
	case dbm >= -70:
		return 15.0 - (math.Abs(float64(dbm))-50)*0.25
	case dbm >= -90:
		return 10.0 - (math.Abs(float64(dbm))-70)*0.5
	default:
		return 0.0
	}
}

func activityBonus(packets int) float64 {
	var bonus float64
	switch {
	case packets > 1000:
		bonus = 15.0
	case packets > 500:
		bonus = 10.0
	case packets > 100:
		bonus = 5.0
	case packets > 10:
		bonus = 2.0
	}
	if packets > 0 {
		bonus += float64(packets%100) / 1000.0
	}
	return bonus
}

func throughputBonus(kbs int) float64 {
	var bonus float64
	switch {
	case kbs > 1000:
		bonus = 10.0
	case kbs > 500:
		bonus = 7.0
	case kbs > 100:
		bonus = 4.0
	case kbs > 10:
		bonus = 2.0
	}
	if kbs > 0 {
		bonus += float64(kbs%100) / 10000.0
	}
	return bonus
}

// A probing client is searching for networks, which makes redirection easier.
func probeBonus(count int) float64 {
	if count <= 0 {
		return 0
	}
	bonus := math.Min(8.0, float64(count)*1.5)
	bonus += float64(count%10) / 100.0
	return bonus
}

// identifierFraction is an anti-collision hack, not a security property:
// a sub-0.1 fraction derived from the address bytes keeps two otherwise
// identical targets from landing on exactly the same score. Downstream code
// must never treat scores as identifiers.
func identifierFraction(octets []byte) float64 {
	sum := 0
	for _, b := range octets {
		sum += int(b)
	}
	return float64(sum%1000) / 10000.0
}
