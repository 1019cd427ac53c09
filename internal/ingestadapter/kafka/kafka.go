// Package kafka consumes inbound messages from a Kafka topic and feeds
// them into the Orchestrator, as a supplemental transport alongside
// internal/httpapi's synchronous HTTP front end.
package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
	"github.com/vmihailenco/msgpack/v5"

	"factored/internal/fact"
	"factored/internal/logging"
	"factored/internal/orchestrator"
)

// SASLConfig holds SASL authentication parameters for the broker
// connection.
type SASLConfig struct {
	Mechanism string // "plain", "scram-sha-256", "scram-sha-512"
	User      string
	Password  string
}

// Config holds Kafka consumer configuration.
type Config struct {
	Brokers []string
	Topic   string
	Group   string
	TLS     bool
	SASL    *SASLConfig
	Logger  *slog.Logger
}

// wireMessage is the msgpack envelope each Kafka record carries: a
// message type and its payload, decoded the same way a POST body is.
type wireMessage struct {
	T int            `msgpack:"t"`
	D map[string]any `msgpack:"d"`
}

// Consumer polls a Kafka topic and hands each decoded message to an
// Orchestrator. It does not retry malformed records; they are logged
// and skipped so one bad message can't stall the partition.
type Consumer struct {
	cfg    Config
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// New builds a Consumer bound to the given Orchestrator.
func New(cfg Config, orch *orchestrator.Orchestrator) *Consumer {
	return &Consumer{
		cfg:    cfg,
		orch:   orch,
		logger: logging.Default(cfg.Logger).With("component", "ingestadapter", "type", "kafka"),
	}
}

// Run connects to Kafka and polls messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.cfg.Brokers...),
		kgo.ConsumeTopics(c.cfg.Topic),
		kgo.ConsumerGroup(c.cfg.Group),
	}

	if c.cfg.TLS {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}

	if c.cfg.SASL != nil {
		mech, err := buildSASLMechanism(c.cfg.SASL)
		if err != nil {
			return err
		}
		opts = append(opts, kgo.SASL(mech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	c.logger.Info("kafka consumer started",
		"brokers", c.cfg.Brokers,
		"topic", c.cfg.Topic,
		"group", c.cfg.Group,
	)

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			c.logger.Info("kafka consumer stopping")
			_ = client.CommitUncommittedOffsets(context.Background())
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, e := range errs {
				c.logger.Warn("kafka fetch error", "topic", e.Topic, "partition", e.Partition, "error", e.Err)
			}
		}

		fetches.EachRecord(func(rec *kgo.Record) {
			c.handleRecord(ctx, rec)
		})
	}
}

func (c *Consumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	var wire wireMessage
	if err := msgpack.Unmarshal(rec.Value, &wire); err != nil {
		c.logger.Warn("kafka record decode failed",
			"topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset, "error", err)
		return
	}

	start := time.Now()
	_, err := c.orch.Process(ctx, fact.InboundMessage{T: wire.T, D: wire.D})
	if err != nil {
		c.logger.Warn("kafka record processing failed",
			"topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset,
			"message_type", wire.T, "error", err, "elapsed", time.Since(start))
		return
	}
}

func buildSASLMechanism(cfg *SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "plain":
		return plain.Auth{User: cfg.User, Pass: cfg.Password}.AsMechanism(), nil
	case "scram-sha-256":
		return scram.Auth{User: cfg.User, Pass: cfg.Password}.AsSha256Mechanism(), nil
	case "scram-sha-512":
		return scram.Auth{User: cfg.User, Pass: cfg.Password}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %q", cfg.Mechanism)
	}
}
