package notifying

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/contre95/snapsaver/src/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *recordingSink) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func TestPublishReachesSinksAndSubscribers(t *testing.T) {
	hub := NewHub(4)
	sink := &recordingSink{}
	hub.AddSink(sink)
	_, events := hub.Subscribe()

	file := media.NewDetectedFile("/tmp/watch/photo.jpg")
	sent := hub.Publish(FileDetected(file))

	require.NotEmpty(t, sent.ID)
	assert.False(t, sent.Time.IsZero())

	got := <-events
	assert.Equal(t, KindFileDetected, got.Kind)
	require.NotNil(t, got.File)
	assert.Equal(t, file.ID, got.File.ID)

	require.Len(t, sink.seen, 1)
	assert.Equal(t, sent.ID, sink.seen[0].ID)
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(1)
	_, events := hub.Subscribe()

	hub.Publish(Success(media.Outcome{Message: "first"}))
	hub.Publish(Success(media.Outcome{Message: "second"}))

	got := <-events
	assert.Equal(t, "first", got.Message)
	select {
	case n := <-events:
		t.Fatalf("unexpected notification %q", n.Message)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(1)
	id, events := hub.Subscribe()
	assert.Equal(t, 1, hub.Subscribers())

	hub.Unsubscribe(id)
	hub.Unsubscribe(id)

	_, ok := <-events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(1)
	_, events := hub.Subscribe()
	hub.Close()

	_, ok := <-events
	assert.False(t, ok)

	_, late := hub.Subscribe()
	_, ok = <-late
	assert.False(t, ok)

	hub.Publish(Failure("ignored", nil))
	hub.Close()
}

func TestFailureMessage(t *testing.T) {
	n := Failure("Failed to save file", errors.New("disk full"))
	assert.Equal(t, KindError, n.Kind)
	assert.Equal(t, "Failed to save file: disk full", n.Message)
}

func TestLogSinkHandlesEveryKind(t *testing.T) {
	sink := LogSink()
	sink.Notify(Notification{Kind: KindFileDetected})
	sink.Notify(FileDetected(media.NewDetectedFile("/tmp/a.png")))
	sink.Notify(Failure("boom", nil))
	sink.Notify(ConfigChanged(media.WatchConfiguration{SavePath: "/tmp"}))
}

func TestWriteEventFrame(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	n := Success(media.Outcome{Decision: media.DecisionRename, Message: "File renamed to a.jpg"})
	n.ID = "abc"
	require.NoError(t, writeEvent(w, n))

	frame := buf.String()
	assert.True(t, strings.HasPrefix(frame, "id: abc\nevent: success\ndata: {"))
	assert.True(t, strings.HasSuffix(frame, "}\n\n"))
	assert.Contains(t, frame, `"message":"File renamed to a.jpg"`)
}
