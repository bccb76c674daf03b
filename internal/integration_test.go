package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweeney/ace128-sensor/internal/ace128"
	"github.com/sweeney/ace128-sensor/internal/gpio"
	"github.com/sweeney/ace128-sensor/internal/logic"
	"github.com/sweeney/ace128-sensor/internal/mqtt"
	"github.com/sweeney/ace128-sensor/internal/status"
	"github.com/sweeney/ace128-sensor/internal/web"
)

const pollInterval = 100 * time.Millisecond

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// hold returns n samples at position p.
func hold(p ace128.Position, n int) []gpio.Sample {
	out := make([]gpio.Sample, n)
	for i := range out {
		out[i] = gpio.PositionSample(p)
	}
	return out
}

// pipeline wires fake pins through the decoder and detector to a fake
// publisher, the way the daemon loop does.
type pipeline struct {
	pins      *gpio.FakePins
	decoder   *ace128.Decoder
	detector  *logic.Detector
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
}

func newPipeline(t *testing.T, samples []gpio.Sample, opts ...ace128.Option) *pipeline {
	t.Helper()
	pins := gpio.NewFakePins(samples)
	decoder, err := ace128.New(pins.Pins(), opts...)
	if err != nil {
		t.Fatalf("ace128.New: %v", err)
	}
	return &pipeline{
		pins:      pins,
		decoder:   decoder,
		detector:  logic.NewDetector(250*time.Millisecond, startTime, decoder.Angle),
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(startTime, status.Config{Broker: "tcp://test:1883"}),
	}
}

// run processes n ticks, the first at startTime. Publish errors are
// tolerated.
func (p *pipeline) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		now := startTime.Add(time.Duration(i) * pollInterval)
		pos, ok, err := p.decoder.Read()
		if err != nil {
			p.detector.RecordError()
			p.tracker.SetError(err)
			continue
		}
		p.tracker.SetReading(status.Reading{Position: pos, Valid: ok, Time: now})

		for _, event := range p.detector.Process(logic.Input{Position: pos, Valid: ok, Time: now}) {
			_ = p.publisher.Publish(event)
		}
		stable, baselined := p.detector.CurrentPosition()
		p.tracker.Update(stable, p.decoder.Angle(stable), baselined, p.detector.EventCountsSnapshot())
	}
}

// TestIntegrationFullFlow tests the complete flow from GPIO to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	// baseline at 0, step to 3, wrap backwards to 125, back to 0
	var samples []gpio.Sample
	for _, p := range []ace128.Position{0, 3, 125, 0} {
		samples = append(samples, hold(p, 4)...)
	}
	pl := newPipeline(t, samples)
	pl.run(t, len(samples))

	want := []struct {
		pos, prev ace128.Position
		delta     int
	}{
		{3, 0, 3},
		{125, 3, -6},
		{0, 125, 3},
	}
	if len(pl.publisher.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pl.publisher.Events))
	}
	for i, w := range want {
		ev := pl.publisher.Events[i]
		if ev.Type != logic.EventPositionChanged {
			t.Errorf("event %d: type %s", i, ev.Type)
		}
		if ev.Position != w.pos || ev.Previous != w.prev || ev.Delta != w.delta {
			t.Errorf("event %d: got %d->%d (%+d), want %d->%d (%+d)",
				i, ev.Previous, ev.Position, ev.Delta, w.prev, w.pos, w.delta)
		}
		if ev.Angle != ace128.PositionToAngle(w.pos) {
			t.Errorf("event %d: angle %v, want %v", i, ev.Angle, ace128.PositionToAngle(w.pos))
		}
	}

	// Every recorded payload decodes back to the event it came from.
	for i, raw := range pl.publisher.Payloads {
		var payload mqtt.Payload
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		if payload.Encoder.Position != int(want[i].pos) {
			t.Errorf("payload %d: position %d, want %d", i, payload.Encoder.Position, want[i].pos)
		}
	}
}

func TestIntegrationNoEventsAtStartup(t *testing.T) {
	pl := newPipeline(t, hold(77, 10))
	pl.run(t, 10)

	if len(pl.publisher.Events) != 0 {
		t.Errorf("expected no events for a stationary encoder, got %d", len(pl.publisher.Events))
	}
	if !pl.detector.IsBaselined() {
		t.Error("expected baseline to be established")
	}
	if p, _ := pl.detector.CurrentPosition(); p != 77 {
		t.Errorf("expected stable position 77, got %d", p)
	}
}

func TestIntegrationBounceRejection(t *testing.T) {
	// Brief excursions to neighbours, each shorter than debounce.
	samples := append(hold(50, 4), hold(51, 2)...)
	samples = append(samples, hold(50, 2)...)
	samples = append(samples, hold(49, 1)...)
	samples = append(samples, hold(50, 4)...)

	pl := newPipeline(t, samples)
	pl.run(t, len(samples))

	if len(pl.publisher.Events) != 0 {
		t.Errorf("expected bounces to be rejected, got %d events", len(pl.publisher.Events))
	}
}

func TestIntegrationTransitionalCodes(t *testing.T) {
	// Between detents the contacts can briefly present codes the encoder
	// never holds. They are counted and skipped.
	samples := append(hold(8, 4), gpio.Sample{Code: 0x00}, gpio.Sample{Code: 0xff})
	samples = append(samples, hold(9, 4)...)

	pl := newPipeline(t, samples)
	pl.run(t, len(samples))

	if len(pl.publisher.Events) != 1 || pl.publisher.Events[0].Position != 9 {
		t.Fatalf("expected one change to 9, got %+v", pl.publisher.Events)
	}
	snap := pl.tracker.Snapshot()
	if snap.Counts.Invalid != 2 {
		t.Errorf("expected 2 invalid reads, got %d", snap.Counts.Invalid)
	}
	if !snap.Last.Valid || snap.Last.Position != 9 {
		t.Errorf("expected last read valid at 9, got %+v", snap.Last)
	}
}

func TestIntegrationPinErrors(t *testing.T) {
	fault := gpio.Sample{Err: errors.New("line closed"), ErrPin: 6}
	samples := append(hold(30, 4), fault, fault)
	samples = append(samples, hold(31, 4)...)

	pl := newPipeline(t, samples)
	pl.run(t, len(samples))

	if len(pl.publisher.Events) != 1 {
		t.Fatalf("expected 1 event after errors, got %d", len(pl.publisher.Events))
	}
	counts := pl.detector.EventCountsSnapshot()
	if counts.Errors != 2 {
		t.Errorf("expected 2 read errors, got %d", counts.Errors)
	}

	// P1..P5 are never touched on a faulted sample.
	if pl.pins.Reads[0] != len(samples)-2 {
		t.Errorf("P1 reads: got %d, want %d", pl.pins.Reads[0], len(samples)-2)
	}
	if pl.pins.Reads[7] != len(samples) {
		t.Errorf("P8 reads: got %d, want %d", pl.pins.Reads[7], len(samples))
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	samples := append(hold(0, 4), hold(1, 4)...)
	pl := newPipeline(t, samples)
	pl.publisher.PublishError = errors.New("broker down")
	pl.run(t, len(samples))

	if len(pl.publisher.Events) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(pl.publisher.Events))
	}
	if pl.detector.EventCountsSnapshot().Changes != 1 {
		t.Error("expected the change to be counted despite publish failure")
	}
}

func TestIntegrationCenteredRange(t *testing.T) {
	samples := append(hold(0, 4), hold(127, 4)...)
	pl := newPipeline(t, samples, ace128.WithAngleRange(ace128.RangeCentered))
	pl.run(t, len(samples))

	if len(pl.publisher.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pl.publisher.Events))
	}
	ev := pl.publisher.Events[0]
	if ev.Delta != -1 {
		t.Errorf("0->127: expected delta -1, got %d", ev.Delta)
	}
	if ev.Angle != ace128.CenteredAngle(127) {
		t.Errorf("angle: got %v, want %v", ev.Angle, ace128.CenteredAngle(127))
	}
}

func TestIntegrationShutdownAfterChanges(t *testing.T) {
	samples := append(hold(10, 4), hold(20, 4)...)
	pl := newPipeline(t, samples)
	pl.run(t, len(samples))

	snap := pl.tracker.Snapshot()
	err := pl.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	})
	if err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	var payload status.StatusJSON
	if err := json.Unmarshal(pl.publisher.SystemPayloads[0], &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := payload.Status
	if s.Event != "SHUTDOWN" || s.Reason != "SIGTERM" {
		t.Errorf("got event=%q reason=%q", s.Event, s.Reason)
	}
	if s.Position == nil || *s.Position != 20 {
		t.Errorf("expected position 20, got %v", s.Position)
	}
	if s.Angle == nil || *s.Angle != ace128.PositionToAngle(20) {
		t.Errorf("expected angle %v, got %v", ace128.PositionToAngle(20), s.Angle)
	}
	if s.Counts.Changes != 1 {
		t.Errorf("expected 1 change, got %d", s.Counts.Changes)
	}
}

func TestIntegrationStatusEndpoint(t *testing.T) {
	samples := append(hold(0, 4), hold(64, 4)...)
	pl := newPipeline(t, samples)
	pl.run(t, len(samples))

	ts := httptest.NewServer(web.New(":0", pl.tracker).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(body, &sj); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if !sj.Status.Ready {
		t.Error("expected ready=true")
	}
	if sj.Status.Position == nil || *sj.Status.Position != 64 {
		t.Errorf("expected position 64, got %v", sj.Status.Position)
	}
	if !sj.Status.Last.Valid || sj.Status.Last.Position != 64 {
		t.Errorf("unexpected last read %+v", sj.Status.Last)
	}
}
