package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")

	data := `
panels:
  - type: timeseries
    title: 温度
    channels: [T1, T2]
    ymin: 0
  - type: value
    channels: [P1]
    format: "%.1f"
    unit: bar
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	d, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:18881", d.Server)
	assert.Equal(t, core.TimeRange{From: -3600, To: 0}, d.TimeRange())
	assert.Equal(t, 60*time.Second, d.Interval())
	assert.Equal(t, 30*time.Second, d.Suspend)
	assert.True(t, d.StreamEnabled())
	assert.Equal(t, 2, d.Layout.Columns)

	require.Len(t, d.Panels, 2)
	assert.Equal(t, []string{"T1", "T2"}, d.Panels[0].Channels)
	require.NotNil(t, d.Panels[0].YMin)
	assert.Equal(t, 0.0, *d.Panels[0].YMin)
	assert.Nil(t, d.Panels[0].YMax)
	assert.Equal(t, "bar", d.Panels[1].Unit)
}

func TestParseExplicitValues(t *testing.T) {
	d, err := Parse([]byte(`
title: 锅炉房
server: https://plant.example:8443
range: {from: 1700000000, to: 1700003600}
update_interval: 0s
reset_delay: 12h
suspend: 2m
stream: false
retry_max: 2
metrics_addr: ":9100"
layout: {columns: 3}
panels:
  - {type: table, channels: [A, B]}
`))
	require.NoError(t, err)

	assert.Equal(t, "锅炉房", d.Title)
	assert.Equal(t, time.Duration(0), d.Interval())
	assert.Equal(t, 12*time.Hour, d.ResetDelay)
	assert.Equal(t, 2*time.Minute, d.Suspend)
	assert.False(t, d.StreamEnabled())
	assert.Equal(t, 2, d.RetryMax)
	assert.Equal(t, ":9100", d.MetricsAddr)
	assert.Equal(t, 3, d.Layout.Columns)
	assert.False(t, d.TimeRange().IsLive())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no panels", `server: http://x`},
		{"bad scheme", "server: ftp://x\npanels: [{type: value, channels: [A]}]"},
		{"missing type", "panels: [{channels: [A]}]"},
		{"missing channels", "panels: [{type: value}]"},
		{"inverted range", "range: {from: 200, to: 100}\npanels: [{type: value, channels: [A]}]"},
		{"negative interval", "update_interval: -1s\npanels: [{type: value, channels: [A]}]"},
		{"bad yaml", "panels: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
