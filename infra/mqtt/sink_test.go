package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/core/model"
)

func TestSinkTopics(t *testing.T) {
	assert.Equal(t, "lddl/bus/12/run", NewSink(NewMockPublisher(), "").Topic(12, "run"))
	assert.Equal(t, "grid/a/bus/3/step", NewSink(NewMockPublisher(), "/grid/a/").Topic(3, "step"))
}

func TestSinkRecordRunRetained(t *testing.T) {
	pub := NewMockPublisher()
	sink := NewSink(pub, "lddl")
	now := time.UnixMilli(1700000000000)
	err := sink.RecordRun(coremetrics.RunEvent{
		RunID:       "r1",
		Bus:         1001,
		Shape:       model.ShapeMonoPeriodic,
		Breakpoints: 17,
		BaseLoadMW:  300,
		Success:     true,
		Duration:    1500 * time.Millisecond,
		Time:        now,
	})
	require.NoError(t, err)
	require.Len(t, pub.Messages, 1)
	msg := pub.Messages[0]
	assert.Equal(t, "lddl/bus/1001/run", msg.Topic)
	assert.True(t, msg.Retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "r1", got["run_id"])
	assert.Equal(t, 17.0, got["breakpoints"])
	assert.Equal(t, 1500.0, got["duration_ms"])
	assert.Equal(t, float64(now.UnixMilli()), got["timestamp"])
	_, hasErr := got["error"]
	assert.False(t, hasErr)
}

func TestSinkRecordStepAndProgress(t *testing.T) {
	pub := NewMockPublisher()
	sink := NewSink(pub, "")
	require.NoError(t, sink.RecordStep(coremetrics.StepEvent{Bus: 5, Index: 2, AppliedMW: 410}))
	require.NoError(t, sink.RecordProgress(coremetrics.ProgressEvent{Bus: 5, Stage: "failed", Error: "boom"}))
	assert.Equal(t, []string{"lddl/bus/5/step", "lddl/bus/5/progress"}, pub.Topics())
	assert.False(t, pub.Messages[0].Retained)
	assert.Contains(t, string(pub.Messages[1].Payload), `"error":"boom"`)
}

func TestSinkRecordOscillationGroupsByBus(t *testing.T) {
	pub := NewMockPublisher()
	sink := NewSink(pub, "")
	evs := []coremetrics.OscillationEvent{
		{SourceBus: 1, Kind: model.KindGenerator, Exceedances: 2},
		{SourceBus: 1, Kind: model.KindLoad},
		{SourceBus: 2, Kind: model.KindTieLine, MaxAmplitudeMW: 9},
	}
	require.NoError(t, sink.RecordOscillation(evs))
	assert.Equal(t, []string{"lddl/bus/1/oscillation", "lddl/bus/2/oscillation"}, pub.Topics())

	var first []oscillationMessage
	require.NoError(t, json.Unmarshal(pub.Messages[0].Payload, &first))
	require.Len(t, first, 2)
	assert.Equal(t, "generator", first[0].Category)
	assert.Equal(t, 2, first[0].Exceedances)
}

func TestSinkPropagatesPublishError(t *testing.T) {
	pub := NewMockPublisher()
	pub.FailTopics["lddl/bus/4/run"] = true
	sink := NewSink(pub, "")
	assert.Error(t, sink.RecordRun(coremetrics.RunEvent{Bus: 4}))
}
