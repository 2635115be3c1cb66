// Package mqtt is the production Coupling: it moves goal, cancel,
// status, feedback, and result messages over an MQTT broker using
// paho.mqtt.golang, the same client the teacher's siomq command uses.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ros2go/actionlib/transport"
)

// Options configures the broker connection. Field names and defaults
// follow the mosquitto_sub-style flags the teacher's siomq exposes.
type Options struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration
	Reconnect bool
	Clean     bool

	CertFile string
	KeyFile  string
	CAFile   string
	Insecure bool

	QoS byte
}

// DefaultOptions returns sensible defaults for connecting to a local
// broker during development.
func DefaultOptions() Options {
	return Options{
		Broker:    "tcp://localhost:1883",
		KeepAlive: 10 * time.Minute,
		Reconnect: true,
		Clean:     true,
		QoS:       1,
	}
}

// Coupling implements transport.Coupling over a single paho client.
type Coupling struct {
	opts   Options
	client paho.Client

	mu   sync.Mutex
	subs map[string]paho.MessageHandler
}

var _ transport.Coupling = (*Coupling)(nil)

// New builds a Coupling from opts without connecting yet; call Start
// to connect.
func New(opts Options) *Coupling {
	return &Coupling{opts: opts, subs: make(map[string]paho.MessageHandler)}
}

func (c *Coupling) Start(ctx context.Context) error {
	copts := paho.NewClientOptions()
	copts.AddBroker(c.opts.Broker)
	copts.SetClientID(c.opts.ClientID)
	copts.SetKeepAlive(c.opts.KeepAlive)
	copts.SetPingTimeout(10 * time.Second)
	copts.Username = c.opts.Username
	copts.Password = c.opts.Password
	copts.AutoReconnect = c.opts.Reconnect
	copts.CleanSession = c.opts.Clean

	if c.opts.CertFile != "" || c.opts.CAFile != "" {
		tlsCfg, err := c.tlsConfig()
		if err != nil {
			return fmt.Errorf("actionlib mqtt: building tls config: %w", err)
		}
		copts.SetTLSConfig(tlsCfg)
	}

	c.client = paho.NewClient(copts)
	tok := c.client.Connect()
	tok.WaitTimeout(10 * time.Second)
	return tok.Error()
}

func (c *Coupling) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: c.opts.Insecure}

	if c.opts.CAFile != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(c.opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading ca file: %w", err)
		}
		pool.AppendCertsFromPEM(pem)
		cfg.RootCAs = pool
	}

	if c.opts.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.opts.CertFile, c.opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

func (c *Coupling) Publish(ctx context.Context, topic string, payload []byte) error {
	tok := c.client.Publish(topic, c.opts.QoS, false, payload)
	if !tok.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("actionlib mqtt: publish to %q timed out", topic)
	}
	return tok.Error()
}

func (c *Coupling) Subscribe(ctx context.Context, topic string, handler transport.Handler) error {
	mh := func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	}

	c.mu.Lock()
	c.subs[topic] = mh
	c.mu.Unlock()

	tok := c.client.Subscribe(topic, c.opts.QoS, mh)
	tok.WaitTimeout(5 * time.Second)
	return tok.Error()
}

func (c *Coupling) Unsubscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	tok := c.client.Unsubscribe(topic)
	tok.WaitTimeout(5 * time.Second)
	return tok.Error()
}

func (c *Coupling) Stop(ctx context.Context) error {
	c.client.Disconnect(250)
	return nil
}
