//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/adapter/kafka"
	"github.com/couchcryptid/nexrad-etl/internal/config"
	"github.com/couchcryptid/nexrad-etl/internal/domain"
	"github.com/couchcryptid/nexrad-etl/internal/level2test"
	"github.com/couchcryptid/nexrad-etl/internal/observability"
	"github.com/couchcryptid/nexrad-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
	kafkaImage      = "confluentinc/confluent-local:7.5.0"
)

// summaryMessage holds a deserialized message read from the sink topic.
type summaryMessage struct {
	Summary domain.VolumeSummary
	Key     string
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("nexrad-etl-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:         []string{broker},
		KafkaSourceTopic:     testSourceTopic,
		KafkaSinkTopic:       testSinkTopic,
		KafkaGroupID:         fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		KafkaMaxMessageBytes: 8 << 20,
		BatchFlushInterval:   5 * time.Second,
	}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// readSummary reads a single message from the sink consumer and deserializes it.
func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) summaryMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var s domain.VolumeSummary
	require.NoError(t, json.Unmarshal(msg.Value, &s), "unmarshal sink message")

	return summaryMessage{Summary: s, Key: string(msg.Key), Headers: headers}
}

func runPipeline(ctx context.Context, t *testing.T, cfg *config.Config) (cancel func()) {
	t.Helper()
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(nil, domain.DecodeOptions{}, discardLogger(), metrics)
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50, 4)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	return func() {
		pipelineCancel()
		require.NoError(t, <-errCh)
	}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) carry a volume and its summary through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	volume := level2test.SampleVolume("KTLX", 2, 4)
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("KTLX20240426_150000_V06"),
		Value: volume,
	}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("KTLX20240426_150000_V06"), raw.Key)
	assert.Equal(t, volume, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	transformer := pipeline.NewTransformer(nil, domain.DecodeOptions{}, discardLogger(), observability.NewMetricsForTesting())
	summary, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.VolumeSummary{summary}))

	sm := readSummary(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, summary.ID, sm.Key)
	assert.Equal(t, "KTLX", sm.Headers["site"])
	_, err = time.Parse(time.RFC3339, sm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, "KTLX", sm.Summary.Site)
	assert.Equal(t, "KTLX20240426_150000_V06", sm.Summary.SourceKey)
	require.Len(t, sm.Summary.Scans, 1)
	assert.Len(t, sm.Summary.Scans[0].Sweeps, 2)
	require.NotNil(t, sm.Summary.Status)
	require.NotNil(t, sm.Summary.ClutterMap)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Transformer → Writer)
// with real Kafka and verifies a summary arrives for every site.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	sweeps := map[string]int{"KTLX": 1, "KFWS": 2, "KINX": 3, "KICT": 4}
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, len(sweeps))
	for site, n := range sweeps {
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(site + "20240426_150000_V06"),
			Value: level2test.SampleVolume(site, n, 6),
		})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	stop := runPipeline(ctx, t, cfg)

	consumer := sinkConsumer(t, broker)
	received := make(map[string]summaryMessage, len(sweeps))
	for len(received) < len(sweeps) {
		sm := readSummary(ctx, t, consumer)
		received[sm.Summary.Site] = sm
	}
	stop()

	for site, n := range sweeps {
		sm, ok := received[site]
		require.True(t, ok, "missing summary for %s", site)
		assert.Equal(t, site, sm.Headers["site"])
		require.Len(t, sm.Summary.Scans, 1, site)
		assert.Len(t, sm.Summary.Scans[0].Sweeps, n, site)
		assert.Equal(t, 0, sm.Summary.PendingRadials, site)
	}
}

// TestPipelineTransformError verifies that a corrupt volume is skipped and the
// pipeline continues processing valid volumes.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	truncated := level2test.SampleVolume("KFWS", 1, 4)
	truncated = truncated[:len(truncated)-20]

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: truncated},
		kafkago.Message{Key: []byte("good"), Value: level2test.SampleVolume("KTLX", 1, 4)},
	))

	stop := runPipeline(ctx, t, cfg)

	consumer := sinkConsumer(t, broker)
	sm := readSummary(ctx, t, consumer)
	assert.Equal(t, "KTLX", sm.Summary.Site)
	assert.Equal(t, "good", sm.Summary.SourceKey)

	// Verify no second message arrives (the corrupt volume was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	stop()
}
