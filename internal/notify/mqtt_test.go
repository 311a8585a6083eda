package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kmmndr/motion_watch/internal/motion"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(completed bool, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeMQTTClient struct {
	token        *fakeToken
	messages     []published
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeMQTTClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublish(t *testing.T) {
	client := &fakeMQTTClient{token: newFakeToken(true, nil)}
	p := newMQTTPublisher(client, "motionwatch/activations/", 1, discardLogger)

	started, _ := endedActivation()
	report := motion.NewReport(started, "garage", 30)

	if err := p.Publish(context.Background(), report); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(client.messages) != 1 {
		t.Fatalf("got %d messages", len(client.messages))
	}

	msg := client.messages[0]
	if msg.topic != "motionwatch/activations/shock/started" || msg.qos != 1 {
		t.Errorf("published to %q qos %d", msg.topic, msg.qos)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["uuid"] != started.UUID() || decoded["start"] != "2.00" {
		t.Errorf("unexpected payload %s", msg.payload)
	}

	if err := p.Close(); err != nil || !client.disconnected {
		t.Errorf("Close did not disconnect: %v", err)
	}
}

func TestMQTTPublishErrors(t *testing.T) {
	started, _ := endedActivation()
	report := motion.NewReport(started, "garage", 30)

	failing := newMQTTPublisher(&fakeMQTTClient{token: newFakeToken(true, errors.New("not connected"))}, "t", 0, discardLogger)
	if err := failing.Publish(context.Background(), report); err == nil {
		t.Errorf("expected token error")
	}

	pending := newMQTTPublisher(&fakeMQTTClient{token: newFakeToken(false, nil)}, "t", 0, discardLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := pending.Publish(ctx, report); !errors.Is(err, ErrPublishTimeout) {
		t.Errorf("expected ErrPublishTimeout, got %v", err)
	}
}
