package ingest

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"airtriage/internal/model"
	"airtriage/internal/normalize"
)

// Scanner subsystems report observations as JSON, but field naming varies by
// tool (airodump exports, kismet feeds, custom probes). The parser accepts
// the common aliases and normalizes the identifier before handing a sample
// to the pipeline.

func ParseSample(data []byte) (*model.ScanSample, error) {
	trim := strings.TrimSpace(string(data))
	if trim == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trim), &obj); err != nil {
		return nil, err
	}
	return ParseSampleMap(obj)
}

func ParseSampleMap(obj map[string]any) (*model.ScanSample, error) {
	lowered := make(map[string]any, len(obj))
	for k, v := range obj {
		lowered[strings.ToLower(k)] = v
	}

	identifier := firstString(lowered, "identifier", "mac", "bssid", "station", "address")
	if identifier == "" {
		return nil, errors.New("observation missing identifier")
	}
	mac, err := normalize.MAC(identifier)
	if err != nil {
		return nil, err
	}

	obs := model.Observation{
		Identifier:       mac,
		SignalDbm:        firstInt(lowered, "signal_dbm", "signal", "power", "rssi"),
		PacketCount:      firstInt(lowered, "packet_count", "packets"),
		Manufacturer:     firstString(lowered, "manufacturer", "vendor", "oui"),
		DeviceType:       firstString(lowered, "device_type", "type"),
		AssociatedTarget: firstString(lowered, "associated_target", "associated_bssid", "ap"),
		ThroughputKBs:    firstInt(lowered, "throughput_kbs", "data_rate", "throughput"),
	}
	obs.ProbedNetworks = stringList(lowered, "probed_networks", "probes", "probed_ssids")

	sample := &model.ScanSample{
		Observation: obs,
		ClientCount: firstInt(lowered, "client_count", "clients"),
		Timestamp:   time.Now().UTC(),
	}
	if ts := firstString(lowered, "timestamp", "time", "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			sample.Timestamp = parsed.UTC()
		}
	}
	return sample, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func stringList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
