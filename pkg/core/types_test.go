package core

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

// TestTimeRangeResolveLive 测试实时区间随当前时间重新解析
func TestTimeRangeResolveLive(t *testing.T) {
	r := TimeRange{From: -3600, To: 0}
	now := time.Unix(1700000000, 0)

	from, to := r.Resolve(now)
	if to != 1700000000 {
		t.Errorf("Expected to=1700000000, got %f", to)
	}
	if from != 1700000000-3600 {
		t.Errorf("Expected from=%d, got %f", 1700000000-3600, from)
	}

	// 时间推进后重新解析
	later := now.Add(90 * time.Second)
	from2, to2 := r.Resolve(later)
	if to2 != to+90 || from2 != from+90 {
		t.Errorf("Expected range to advance by 90s, got from=%f to=%f", from2, to2)
	}
}

// TestTimeRangeResolveRelativeTo 测试负数上界
func TestTimeRangeResolveRelativeTo(t *testing.T) {
	r := TimeRange{From: -600, To: -60}
	now := time.Unix(1000, 0)

	from, to := r.Resolve(now)
	if to != 940 {
		t.Errorf("Expected to=940, got %f", to)
	}
	if from != 340 {
		t.Errorf("Expected from=340, got %f", from)
	}
}

// TestTimeRangeResolveFixed 测试固定区间不随时间变化
func TestTimeRangeResolveFixed(t *testing.T) {
	r := TimeRange{From: 1000, To: 2000}
	for _, now := range []time.Time{time.Unix(5000, 0), time.Unix(9000, 0)} {
		from, to := r.Resolve(now)
		if from != 1000 || to != 2000 {
			t.Errorf("Fixed range should not move, got from=%f to=%f", from, to)
		}
	}
	if r.IsLive() {
		t.Error("Fixed range should not be live")
	}
}

// TestTimeRangeLength 测试区间长度计算规则
func TestTimeRangeLength(t *testing.T) {
	now := time.Unix(10000, 0)
	tests := []struct {
		name     string
		r        TimeRange
		expected float64
	}{
		{"last N seconds", TimeRange{From: -3600, To: 0}, 3600},
		{"last N seconds with fixed to", TimeRange{From: -500, To: 9000}, 500},
		{"absolute from, relative to", TimeRange{From: 8000, To: -1000}, 1000},
		{"absolute", TimeRange{From: 1000, To: 4600}, 3600},
	}

	for _, tt := range tests {
		if got := tt.r.Length(now); got != tt.expected {
			t.Errorf("%s: expected %f, got %f", tt.name, tt.expected, got)
		}
	}
}

// TestUnixSecondsRoundTrip 测试秒与时间的转换
func TestUnixSecondsRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 500000000)
	s := UnixSeconds(ts)
	if math.Abs(s-1700000000.5) > 1e-6 {
		t.Errorf("Expected 1700000000.5, got %f", s)
	}
	back := FromUnixSeconds(s)
	if back.Sub(ts).Abs() > time.Microsecond {
		t.Errorf("Round trip drifted: %v vs %v", back, ts)
	}
}

// TestStatusString 测试状态栏文本
func TestStatusString(t *testing.T) {
	ok := StatusOK(time.Date(2024, 1, 1, 12, 34, 56, 0, time.Local))
	if ok.String() != "Update: 12:34:56" {
		t.Errorf("Unexpected success text: %q", ok.String())
	}

	failed := Status{Code: 500, Text: "Internal Server Error"}
	if failed.String() != "Error [ Status 500, Internal Server Error ]" {
		t.Errorf("Unexpected error text: %q", failed.String())
	}
	if !failed.Reachable() {
		t.Error("HTTP error status should count as reachable")
	}

	down := Status{Code: CodeTransportFailure, Text: "connection refused"}
	if down.Reachable() || down.OK() {
		t.Error("Transport failure should be neither reachable nor OK")
	}
}

// TestChannelSeriesArrayForm 测试数组形式解析
func TestChannelSeriesArrayForm(t *testing.T) {
	var s ChannelSeries
	data := `{"t":[0,60],"x":[1.0,2.0],"start":1700000000}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if s.Scalar {
		t.Error("Array form should not be scalar")
	}
	if s.Len() != 2 {
		t.Fatalf("Expected 2 samples, got %d", s.Len())
	}
	if s.Time(1) != 1700000060 {
		t.Errorf("Expected absolute time 1700000060, got %f", s.Time(1))
	}
	if v, ok := s.Float(1); !ok || v != 2.0 {
		t.Errorf("Expected x[1]=2.0, got %v", s.X[1])
	}
}

// TestChannelSeriesScalarForm 测试标量快照解析
func TestChannelSeriesScalarForm(t *testing.T) {
	var s ChannelSeries
	if err := json.Unmarshal([]byte(`{"x":{"bins":[1,2]},"t":1700000000}`), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !s.Scalar {
		t.Error("Expected scalar form")
	}
	tm, x, ok := s.Last()
	if !ok || tm != 1700000000 {
		t.Errorf("Unexpected last sample time %f", tm)
	}
	if _, isMap := x.(map[string]any); !isMap {
		t.Errorf("Expected object value, got %T", x)
	}
	if _, ok := s.Float(0); ok {
		t.Error("Object value should not convert to float")
	}
}

// TestChannelSeriesLengthMismatch 测试x与t长度不一致
func TestChannelSeriesLengthMismatch(t *testing.T) {
	var s ChannelSeries
	err := json.Unmarshal([]byte(`{"t":[0,1,2],"x":[1,2]}`), &s)
	if err == nil {
		t.Fatal("Expected error for mismatched lengths")
	}
}

// TestChannelSeriesMissingTime 测试缺少时间戳
func TestChannelSeriesMissingTime(t *testing.T) {
	var s ChannelSeries
	if err := json.Unmarshal([]byte(`{"x":1}`), &s); err == nil {
		t.Fatal("Expected error when t is missing")
	}
}

// TestChannelSeriesSortsSamples 测试乱序样本被排序
func TestChannelSeriesSortsSamples(t *testing.T) {
	var s ChannelSeries
	if err := json.Unmarshal([]byte(`{"t":[2,0,1],"x":["c","a","b"]}`), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if s.X[i] != want {
			t.Errorf("Sample %d: expected %s, got %v", i, want, s.X[i])
		}
		if s.T[i] != float64(i) {
			t.Errorf("Sample %d: expected t=%d, got %f", i, i, s.T[i])
		}
	}
}

// TestChannelSeriesMarshal 测试输出保持原始形式
func TestChannelSeriesMarshal(t *testing.T) {
	scalar := NewScalarSeries(3.5, 100)
	out, err := json.Marshal(scalar)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"x":3.5,"t":100}` {
		t.Errorf("Unexpected scalar JSON %s", out)
	}
}

// TestDataPacketStates 测试数据包状态迁移
func TestDataPacketStates(t *testing.T) {
	p := NewDataPacket(TimeRange{From: -60}, 1)
	if p.Meta().State != PacketFresh || p.Meta().IsPartial() {
		t.Errorf("New packet should be fresh and not partial, got %s", p.Meta().State)
	}

	p.BeginMerge()
	p.Merge(map[string]*ChannelSeries{"A": NewScalarSeries(1.0, 1)}, false)
	if !p.Meta().IsPartial() || p.Meta().IsCurrent() {
		t.Error("Packet with outstanding sub-fetches should be partial and not current")
	}

	p.Merge(map[string]*ChannelSeries{"B": NewScalarSeries(2.0, 1)}, true)
	if p.Meta().State != PacketComplete || p.Meta().IsPartial() {
		t.Errorf("Expected complete state, got %s", p.Meta().State)
	}

	now := time.Unix(1700000000, 0)
	p.MergeCurrent(map[string]*ChannelSeries{"A": NewScalarSeries(5.0, 2)}, now)
	meta := p.Meta()
	if !meta.IsCurrent() || !meta.IsPartial() {
		t.Error("Streamed packet should be current and partial")
	}
	if !meta.CurrentDataTime.Equal(now) {
		t.Errorf("Expected currentDataTime %v, got %v", now, meta.CurrentDataTime)
	}
	if strings.Join(p.Names(), ",") != "A,B" {
		t.Errorf("Unexpected channel names %v", p.Names())
	}
}

// TestDataPacketStaysLiveAfterMerge 测试同一轮中接受过推送的数据包保持 current
func TestDataPacketStaysLiveAfterMerge(t *testing.T) {
	p := NewDataPacket(TimeRange{From: -60}, 1)
	p.BeginMerge()

	now := time.Unix(1700000000, 0)
	p.MergeCurrent(map[string]*ChannelSeries{"A": NewScalarSeries(5.0, 1700000000)}, now)
	p.Merge(map[string]*ChannelSeries{"B": NewScalarSeries(2.0, 1)}, true)

	meta := p.Meta()
	if meta.State != PacketLive || !meta.IsCurrent() {
		t.Errorf("Expected live state after push and final merge, got %s", meta.State)
	}
}

// TestChannelSeriesAppend 测试追加样本返回新序列
func TestChannelSeriesAppend(t *testing.T) {
	s := &ChannelSeries{Start: 100, T: []float64{0, 1}, X: []any{1.0, 2.0}}

	out, ok := s.Append(105, 3.0)
	if !ok {
		t.Fatal("Append after last sample should succeed")
	}
	if out.Len() != 3 || out.Time(2) != 105 {
		t.Errorf("Unexpected appended series len=%d last=%f", out.Len(), out.Time(out.Len()-1))
	}
	if s.Len() != 2 {
		t.Errorf("Original series should be unchanged, got len %d", s.Len())
	}

	if _, ok := s.Append(101, 9.0); ok {
		t.Error("Append at or before the last sample should be rejected")
	}
}

// TestDataPacketSnapshotIsolation 测试快照不受后续合并影响
func TestDataPacketSnapshotIsolation(t *testing.T) {
	p := NewDataPacket(TimeRange{From: -60}, 1)
	p.Merge(map[string]*ChannelSeries{"A": NewScalarSeries(1.0, 1)}, true)

	snap := p.Snapshot()
	p.Merge(map[string]*ChannelSeries{"A": NewScalarSeries(9.0, 2), "B": NewScalarSeries(2.0, 2)}, true)

	a, _ := snap.Channel("A")
	if v, _ := a.Float(0); v != 1.0 {
		t.Errorf("Snapshot should keep old value, got %f", v)
	}
	if snap.Has("B") {
		t.Error("Snapshot should not see channels merged later")
	}
}

// TestDataPacketMarshalMeta 测试 __meta 输出
func TestDataPacketMarshalMeta(t *testing.T) {
	p := NewDataPacket(TimeRange{From: -3600, To: 0}, 1)
	p.BeginMerge()

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	meta := decoded["__meta"]
	if meta["isPartial"] != true || meta["isCurrent"] != false {
		t.Errorf("Unexpected meta flags %v", meta)
	}
	if meta["currentDataTime"] != nil {
		t.Errorf("Expected null currentDataTime, got %v", meta["currentDataTime"])
	}
}
