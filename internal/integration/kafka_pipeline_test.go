//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/adapter/kafka"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/adapter/nwis"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/config"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/observability"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/pipeline"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/retrieval"
)

const (
	testSinkTopic = "test-water-observations"
	testSite      = "01491000"
)

const instantaneousWaterML = `<?xml version="1.0" encoding="UTF-8"?>
<Collection xmlns:xlink="http://www.w3.org/1999/xlink">
  <observationMember>
    <OM_Observation>
      <result>
        <MeasurementTimeseries>
          <defaultPointMetadata>
            <DefaultTVPMeasurementMetadata>
              <qualifier xlink:title="Provisional data subject to revision."/>
            </DefaultTVPMeasurementMetadata>
          </defaultPointMetadata>
          <point>
            <MeasurementTVP>
              <time>2024-04-26T08:00:00-05:00</time>
              <value>128.4</value>
            </MeasurementTVP>
          </point>
          <point>
            <MeasurementTVP>
              <time>2024-04-26T08:15:00-05:00</time>
              <value>129.1</value>
            </MeasurementTVP>
          </point>
        </MeasurementTimeseries>
      </result>
    </OM_Observation>
  </observationMember>
</Collection>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker addresses")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// fakeNWIS serves a fixed WaterML document for instantaneous-values requests.
func fakeNWIS(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nwis/iv/", r.URL.Path)
		_, _ = w.Write([]byte(instantaneousWaterML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestIngestEndToEnd runs the full loop against real Kafka: fetch from a
// stub NWIS server, parse, normalize, publish, then consume from the sink
// topic and verify the observations.
func TestIngestEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	nwisSrv := fakeNWIS(t)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	client := nwis.NewClient(nwisSrv.URL, nwisSrv.URL, 10*time.Second, logger)
	reader := retrieval.New(client, metrics, logger)

	writer := kafkaadapter.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, writer, logger, metrics,
		[]string{testSite}, []string{"00060"}, time.Minute)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	observations := make([]domain.Observation, 0, 2)
	headerSets := make([]map[string]string, 0, 2)
	for len(observations) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		var obs domain.Observation
		require.NoError(t, json.Unmarshal(msg.Value, &obs))
		observations = append(observations, obs)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		headerSets = append(headerSets, headers)

		assert.Equal(t, obs.ID, string(msg.Key), "key should be the observation ID")
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for i, obs := range observations {
		assert.Equal(t, testSite, obs.SiteID)
		assert.Equal(t, "00060", obs.ParameterCode)
		assert.Equal(t, "P", obs.Qualifier, "default qualifier should map to its code")
		require.NotNil(t, obs.Value)
		assert.False(t, obs.ProcessedAt.IsZero())

		assert.Equal(t, testSite, headerSets[i]["site_id"])
		assert.Equal(t, "00060", headerSets[i]["parameter_code"])
		_, err := time.Parse(time.RFC3339, headerSets[i]["processed_at"])
		assert.NoError(t, err, "processed_at header should be RFC3339")
	}

	// Points arrive in document order with times normalized to UTC.
	assert.Equal(t, time.Date(2024, time.April, 26, 13, 0, 0, 0, time.UTC), observations[0].Time.UTC())
	assert.Equal(t, 128.4, *observations[0].Value)
	assert.Equal(t, 129.1, *observations[1].Value)
}
