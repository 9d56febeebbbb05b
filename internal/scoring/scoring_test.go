package scoring

import (
	"testing"

	"airtriage/internal/model"
)

func TestScoreDeterministic(t *testing.T) {
	obs := model.Observation{
		Identifier:     "de:ad:be:ef:00:01",
		SignalDbm:      -55,
		PacketCount:    342,
		Manufacturer:   "Xiaomi",
		DeviceType:     "smartphone",
		ProbedNetworks: []string{"HomeWifi", "CoffeeShop"},
		ThroughputKBs:  220,
	}
	first := Score(obs)
	for i := 0; i < 10; i++ {
		if got := Score(obs); got != first {
			t.Fatalf("score not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []model.Observation{
		{},
		{Identifier: "aa:bb:cc:00:11:22"},
		{Identifier: "00:11:22:33:44:55", SignalDbm: -120, DeviceType: "unknown", Manufacturer: "Apple"},
		{Identifier: "aa:bb:cc:00:11:22", SignalDbm: -30, PacketCount: 99999, ThroughputKBs: 99999,
			DeviceType: "iot camera", Manufacturer: "HikVision", AssociatedTarget: "ap-1",
			ProbedNetworks: []string{"a", "b", "c", "d", "e", "f", "g"}},
	}
	for _, obs := range cases {
		got := Score(obs)
		if got.Score < 0 || got.Score > 100 {
			t.Fatalf("score out of bounds: %v for %+v", got.Score, obs)
		}
	}
}

func TestPriorityBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Priority
	}{
		{85.00, model.PriorityCritical},
		{84.99, model.PriorityHigh},
		{70.00, model.PriorityHigh},
		{69.99, model.PriorityMedium},
		{50.00, model.PriorityMedium},
		{49.99, model.PriorityLow},
		{0, model.PriorityLow},
		{100, model.PriorityCritical},
	}
	for _, tc := range cases {
		if got := PriorityFor(tc.score); got != tc.want {
			t.Fatalf("PriorityFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestJitterUniqueness(t *testing.T) {
	base := model.Observation{
		SignalDbm:    -65,
		PacketCount:  50,
		DeviceType:   "laptop",
		Manufacturer: "Samsung",
	}
	a := base
	a.Identifier = "aa:bb:cc:00:11:22"
	b := base
	b.Identifier = "aa:bb:cc:00:11:ff"
	sa := Score(a)
	sb := Score(b)
	if sa.Score == sb.Score {
		t.Fatalf("observations differing only by identifier scored equally: %v", sa.Score)
	}
}

func TestHighValueCameraExample(t *testing.T) {
	obs := model.Observation{
		Identifier:       "aa:bb:cc:00:11:22",
		SignalDbm:        -40,
		PacketCount:      1200,
		Manufacturer:     "HikVision",
		DeviceType:       "camera",
		AssociatedTarget: "target-1",
	}
	got := Score(obs)
	if got.Score != 100 {
		t.Fatalf("expected clamp to 100, got %v", got.Score)
	}
	if got.Priority != model.PriorityCritical {
		t.Fatalf("expected CRITICAL, got %s", got.Priority)
	}
}

func TestDeviceTypeFirstMatchWins(t *testing.T) {
	// "smartphone" contains both "phone" and "smartphone"; the ordered table
	// must resolve via its first entry every time.
	obs := model.Observation{Identifier: "00:11:22:33:44:55", DeviceType: "smartphone"}
	first := Score(obs)
	for i := 0; i < 5; i++ {
		if got := Score(obs); got.Score != first.Score {
			t.Fatalf("table lookup not stable: %v vs %v", got.Score, first.Score)
		}
	}
}

func TestMalformedIdentifierDegradesGracefully(t *testing.T) {
	// laptop base 75, -60 dBm signal +12.5, unassociated +3; without
	// parseable octets the address terms drop out entirely.
	broken := model.Observation{Identifier: "not-a-mac", SignalDbm: -60, DeviceType: "laptop"}
	got := Score(broken)
	if got.Score != 90.5 {
		t.Fatalf("neutral address term mismatch: got %v want 90.5", got.Score)
	}
}

func TestSignalBonusMonotonic(t *testing.T) {
	prev := signalBonus(-20)
	for dbm := -21; dbm >= -100; dbm-- {
		cur := signalBonus(dbm)
		if cur > prev {
			t.Fatalf("signal bonus not monotonic at %d dBm: %v > %v", dbm, cur, prev)
		}
		prev = cur
	}
	if signalBonus(-30) != 20 {
		t.Fatalf("expected +20 at -30 dBm")
	}
	if signalBonus(-95) != 0 {
		t.Fatalf("expected 0 below -90 dBm")
	}
}

func TestLocallyAdministeredPenalty(t *testing.T) {
	// laptop base 75, -60 dBm +12.5, unassociated +3, then the address term:
	// +2 with jitter 0.0255 for the universal address, -5 with jitter 0.0257
	// for the locally administered one.
	public := model.Observation{Identifier: "00:11:22:33:44:55", DeviceType: "laptop", SignalDbm: -60}
	private := public
	private.Identifier = "02:11:22:33:44:55"
	if got := Score(public).Score; got != 92.53 {
		t.Fatalf("universal address score mismatch: got %v want 92.53", got)
	}
	if got := Score(private).Score; got != 85.53 {
		t.Fatalf("randomized address score mismatch: got %v want 85.53", got)
	}
}

func TestRecommendActions(t *testing.T) {
	recs := RecommendActions(90, "camera", true)
	if len(recs) == 0 {
		t.Fatalf("expected recommendations at critical tier")
	}
	if !contains(recs, "Deauth + Evil Twin") || !contains(recs, "Exploit Known CVEs") {
		t.Fatalf("missing expected critical/IoT entries: %v", recs)
	}
	if recs := RecommendActions(75, "laptop", false); !contains(recs, "Probe Response") {
		t.Fatalf("expected probe response for unassociated high tier: %v", recs)
	}
	if recs := RecommendActions(40, "laptop", true); len(recs) != 0 {
		t.Fatalf("expected no recommendations below medium tier: %v", recs)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(model.PriorityCritical, "camera"); got != "High-value target - Easy attack [camera]" {
		t.Fatalf("unexpected description: %s", got)
	}
	if got := Describe(model.PriorityLow, "unknown"); got != "Low-value target - Difficult" {
		t.Fatalf("unknown device type should be omitted: %s", got)
	}
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
