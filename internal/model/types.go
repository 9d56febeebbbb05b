package model

import "time"

type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Observation is a single sighting of a network or client as reported by a
// scanning subsystem. The core never stores these; they are supplied per call.
type Observation struct {
	Identifier       string   `json:"identifier"`
	SignalDbm        int      `json:"signal_dbm"`
	PacketCount      int      `json:"packet_count"`
	Manufacturer     string   `json:"manufacturer,omitempty"`
	DeviceType       string   `json:"device_type,omitempty"`
	ProbedNetworks   []string `json:"probed_networks,omitempty"`
	AssociatedTarget string   `json:"associated_target,omitempty"`
	ThroughputKBs    int      `json:"throughput_kbs"`
}

type ScoreResult struct {
	Score    float64  `json:"score"`
	Priority Priority `json:"priority"`
}

// ScanSample wraps an observation with scanner-side context that is not part
// of the scored attributes.
type ScanSample struct {
	Observation Observation `json:"observation"`
	ClientCount int         `json:"client_count,omitempty"`
	Source      string      `json:"source,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

type AttackKind string

const (
	AttackDeauth           AttackKind = "deauth"
	AttackEvilTwin         AttackKind = "eviltwin"
	AttackWPSPixie         AttackKind = "wps_pixie"
	AttackWPSPinBruteforce AttackKind = "wps_pin_bruteforce"
	AttackHandshakeCapture AttackKind = "handshake_capture"
	AttackPMKIDCapture     AttackKind = "pmkid_capture"
	AttackHashcatCrack     AttackKind = "hashcat_crack"
)

type AttackStatus string

const (
	StatusQueued    AttackStatus = "queued"
	StatusRunning   AttackStatus = "running"
	StatusCompleted AttackStatus = "completed"
	StatusFailed    AttackStatus = "failed"
	StatusCancelled AttackStatus = "cancelled"
)

func (s AttackStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type AttackRecord struct {
	ID            string       `json:"id"`
	TargetID      string       `json:"target_id"`
	Kind          AttackKind   `json:"kind"`
	Status        AttackStatus `json:"status"`
	Progress      int          `json:"progress"`
	Score         float64      `json:"score"`
	Priority      Priority     `json:"priority"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	EndedAt       *time.Time   `json:"ended_at,omitempty"`
	ETASeconds    int          `json:"eta_seconds,omitempty"`
	ResultSummary string       `json:"result_summary,omitempty"`
}

type RecentAttack struct {
	TargetID       string       `json:"target_id"`
	Kind           AttackKind   `json:"kind"`
	Status         AttackStatus `json:"status"`
	Progress       int          `json:"progress"`
	ElapsedSeconds int64        `json:"elapsed_seconds"`
}

type Snapshot struct {
	RunningCount   int            `json:"running_count"`
	TotalCompleted int            `json:"total_completed"`
	Recent         []RecentAttack `json:"recent"`
}
