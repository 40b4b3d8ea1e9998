package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handsignal/internal/hand"
	"github.com/ayusman/handsignal/internal/logging"
	"github.com/ayusman/handsignal/internal/metrics"
	"github.com/ayusman/handsignal/internal/sample"
)

func newTestPublisher(conn Connection) (*Publisher, *metrics.Metrics) {
	m := metrics.New()
	return NewPublisher(conn, DefaultSubjects, logging.Discard(), m), m
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestPublisher_PublishLabel(t *testing.T) {
	conn := NewMockConn()
	p, _ := newTestPublisher(conn)

	if !p.PublishLabel(context.Background(), "turn left") {
		t.Fatal("PublishLabel returned false")
	}

	sent := conn.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	want := "PUB hand.prediction 11\r\n\"turn left\"\r\n"
	if string(sent[0]) != want {
		t.Errorf("sent %q, want %q", sent[0], want)
	}
}

func TestPublisher_PublishSample(t *testing.T) {
	conn := NewMockConn()
	p, _ := newTestPublisher(conn)

	s := sample.Sample{
		Run:     1,
		Time:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local),
		Gesture: "up",
		Number:  1,
		Joints:  map[hand.JointID]hand.Vec3{hand.Palm: {X: 0.111, Y: 0.222, Z: 0.333}},
	}
	if !p.PublishSample(context.Background(), s) {
		t.Fatal("PublishSample returned false")
	}

	frames, err := conn.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 1 || frames[0].Subject != "hand.jointData" {
		t.Fatalf("frames = %+v", frames)
	}
	want, _ := sample.Payload(s)
	if string(frames[0].Payload) != string(want) {
		t.Errorf("payload = %s, want %s", frames[0].Payload, want)
	}
}

func TestPublisher_DropsWhenClosed(t *testing.T) {
	conn := NewMockConn()
	conn.SetOpen(false)
	p, m := newTestPublisher(conn)

	if p.Publish(context.Background(), "hand.jointData", []byte("{}")) {
		t.Error("Publish should report false when the connection is closed")
	}
	if len(conn.Sent()) != 0 {
		t.Error("nothing should be sent")
	}
	if !strings.Contains(scrape(t, m), `handsignal_publish_dropped_total{subject="hand.jointData"} 1`) {
		t.Error("drop should be counted")
	}
}

func TestPublisher_DropsOnSendError(t *testing.T) {
	conn := NewMockConn()
	conn.SetError(errors.New("broken pipe"))
	p, m := newTestPublisher(conn)

	if p.PublishLabel(context.Background(), "left") {
		t.Error("PublishLabel should report false on send error")
	}
	if !strings.Contains(scrape(t, m), `handsignal_publish_dropped_total{subject="hand.prediction"} 1`) {
		t.Error("drop should be counted")
	}
}

func TestPublisher_NilConnection(t *testing.T) {
	p, _ := newTestPublisher(nil)
	if p.Publish(context.Background(), "hand.jointData", []byte("{}")) {
		t.Error("Publish without a connection should be dropped")
	}
}

func TestPublisher_RejectsBadSubject(t *testing.T) {
	conn := NewMockConn()
	p, _ := newTestPublisher(conn)

	if p.Publish(context.Background(), "bad subject", []byte("x")) {
		t.Error("Publish should reject subjects with whitespace")
	}
	if len(conn.Sent()) != 0 {
		t.Error("nothing should be sent")
	}
}
