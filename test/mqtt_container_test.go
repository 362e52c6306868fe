//go:build !no_containers

package test

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lddl/app"
	"github.com/kilianp07/lddl/test/util"
)

func TestPipelinePublishesToMQTT(t *testing.T) {
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto: %v", err)
	}
	defer cleanup()

	msgs, stop, err := util.Subscribe(broker, "lddl-observer", "lddl/bus/1001/#")
	require.NoError(t, err)
	defer stop()

	cfg := loadConfig(t, `scenario:
  shape: Mono-periodic
  freq_primary_hz: 1
  amplitude_mw: 100
  start_time_s: 1
  stop_time_s: 3
target:
  buses: [1001]
analysis:
  threshold_mw: 1
files:
  output_dir: "`+t.TempDir()+`"
  skip_plots: true
simulator:
  type: synthetic
  conf:
    step_s: 0.01
metrics:
  sinks:
    - type: mqtt
      conf:
        broker: "`+broker+`"
        client_id: "lddl-test"
        topic_prefix: "lddl"
        qos: 1
`)
	svc, err := app.New(cfg)
	require.NoError(t, err)
	_, err = svc.RunAll(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	var gotRun, gotOsc bool
	timeout := time.After(5 * time.Second)
	for !gotRun || !gotOsc {
		select {
		case m := <-msgs:
			switch m.Topic {
			case "lddl/bus/1001/run":
				var run struct {
					Success bool `json:"success"`
				}
				require.NoError(t, json.Unmarshal(m.Payload, &run))
				require.True(t, run.Success)
				gotRun = true
			case "lddl/bus/1001/oscillation":
				gotOsc = true
			}
		case <-timeout:
			t.Fatalf("run=%v oscillation=%v messages received before timeout", gotRun, gotOsc)
		}
	}
}
