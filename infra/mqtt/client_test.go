package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evcharge/core/events"
	"github.com/kilianp07/evcharge/internal/eventbus"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	if !opts.WillEnabled || opts.WillTopic != "evcharge/status" || string(opts.WillPayload) != "offline" || !opts.WillRetained {
		t.Fatalf("will options incorrect")
	}
	if _, err := NewClientOptions(Config{}); err == nil {
		t.Fatal("expected missing broker error")
	}
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = orig })
}

func TestPublisher_AnnouncesAndPublishes(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "sim/", QoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].topic != "sim/status" || !mc.published[0].retained {
		t.Fatalf("status not announced: %+v", mc.published)
	}
	ev := events.Event{Time: t0, Kind: events.KindAdmitted, VehicleID: "v1", ClusterID: "A"}
	if err := pub.Publish(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	last := mc.published[len(mc.published)-1]
	if last.topic != "sim/events/admitted" || last.qos != 1 {
		t.Fatalf("unexpected publish %+v", last)
	}
	var msg message
	if err := json.Unmarshal(last.payload.([]byte), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.MessageID == "" || msg.Event.VehicleID != "v1" || !msg.Event.Time.Equal(t0) {
		t.Fatalf("unexpected message %+v", msg)
	}
	pub.Disconnect()
	if end := mc.published[len(mc.published)-1]; end.topic != "sim/status" || end.payload != "offline" {
		t.Fatalf("offline status not published: %+v", end)
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{nil, fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.Publish(events.Event{Kind: events.KindRejected}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 3 {
		t.Fatalf("expected status plus two attempts, got %d", len(mc.published))
	}
	mc.publishErrs = []error{fmt.Errorf("down"), fmt.Errorf("down")}
	if err := pub.Publish(events.Event{Kind: events.KindRejected}); err == nil {
		t.Fatal("expected error after retries")
	}
}

func TestForward(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	bus := eventbus.NewTyped[events.Event]()
	ch := bus.Subscribe()
	bus.Publish(events.Event{Kind: events.KindAdmitted})
	bus.Publish(events.Event{Kind: events.KindDeparted})
	bus.Close()
	if n := pub.Forward(context.Background(), ch); n != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := pub.Forward(ctx, make(chan events.Event)); n != 0 {
		t.Fatalf("expected cancelled forward to stop, got %d", n)
	}
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []published
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.published = append(m.published, published{topic: topic, qos: qos, retained: retained, payload: payload})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
