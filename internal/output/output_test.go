package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/chrisdamba/profitlens/internal/cloudwriter"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

var eventTime = time.Date(2024, 7, 9, 14, 30, 0, 0, time.UTC)

func sampleDecision() *models.Decision {
	return &models.Decision{
		ID:           "d1",
		RestaurantID: "r1",
		Type:         models.DecisionPromote,
		Category:     models.CategoryMenu,
		Target:       models.DecisionTarget{Kind: models.TargetItem, EntityID: "m1", Name: "Tiramisu"},
		Priority:     models.PriorityHigh,
		PredictedImpact: models.Impact{
			Min: 70, Max: 120, Confidence: 75,
			Revenue: models.NewRevenueImpact(1000, 1095),
		},
		Rationale: "high margin, low popularity",
		Risks:     []string{"cannibalization", "promo cost"},
		Status:    models.DecisionStatusPending,
	}
}

func TestPublishToConsole(t *testing.T) {
	var buf bytes.Buffer
	out := NewConsoleOutput(&buf)

	require.NoError(t, Publish(out, models.TopicDecisionEvents, NewDecisionEvent(EventDecisionCreated, sampleDecision(), eventTime)))
	assert.Contains(t, buf.String(), "[decision_events] {")
	assert.Contains(t, buf.String(), `"risks":"cannibalization; promo cost"`)

	assert.NoError(t, Publish(nil, models.TopicDecisionEvents, struct{}{}))
}

func TestJSONOutputPartitionsByHour(t *testing.T) {
	dir := t.TempDir()
	out := NewJSONOutput(dir, "exports")

	ev := NewDecisionEvent(EventDecisionCreated, sampleDecision(), eventTime)
	require.NoError(t, Publish(out, models.TopicDecisionEvents, ev))
	require.NoError(t, Publish(out, models.TopicDecisionEvents, ev))
	require.NoError(t, out.Close())

	file := filepath.Join(dir, "exports", "decision_events", "year=2024/month=07/day=09/hour=14", "data.json")
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestCSVOutputWritesSortedHeaders(t *testing.T) {
	dir := t.TempDir()
	out := NewCSVOutput(dir, "")

	b := &models.ItemBaseline{MenuItemID: "m1", RestaurantID: "r1", Version: 3, SampleDays: 12, ComputedAt: eventTime}
	require.NoError(t, Publish(out, models.TopicBaselineEvents, NewBaselineEvent(b)))
	require.NoError(t, out.Close())

	f, err := os.Open(filepath.Join(dir, "baseline_events", "year=2024/month=07/day=09/hour=14", "data.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "avgDailyQuantity", records[0][0])

	idx := -1
	for i, h := range records[0] {
		if h == "timestamp" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "1720535400", records[1][idx])
}

func TestWriteMessageRejectsMissingTimestamp(t *testing.T) {
	out := NewJSONOutput(t.TempDir(), "")
	assert.Error(t, out.WriteMessage(models.TopicDecisionEvents, []byte(`{"eventType":"x"}`)))
}

func TestParquetOutputLocal(t *testing.T) {
	dir := t.TempDir()
	out := newParquetOutput(dir, "reports")

	insight := &models.Insight{
		ID: "i1", RestaurantID: "r1", Severity: models.SeverityCritical,
		CurrentRevenue:    decimal.NewFromInt(12000),
		ComparisonRevenue: decimal.NewFromInt(10000),
		Factors: []models.CausalFactor{
			{Factor: models.FactorVolume, Contribution: decimal.NewFromInt(2000)},
		},
		CreatedAt: eventTime,
		ExpiresAt: eventTime.AddDate(0, 0, 7),
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, Publish(out, models.TopicInsightEvents, NewInsightEvent(insight)))
	}
	require.NoError(t, out.Close())

	path := filepath.Join(dir, "reports", "insight_events", "year=2024/month=07/day=09/hour=14", "data.parquet")
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(InsightEvent), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	assert.Equal(t, int64(3), pr.GetNumRows())

	rows := make([]InsightEvent, 3)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, 2000.0, rows[0].VolumeEffect)
	assert.Equal(t, "critical", rows[0].Severity)
}

func TestParquetOutputUnknownTopic(t *testing.T) {
	out := newParquetOutput(t.TempDir(), "")
	err := out.WriteMessage("mystery_events", []byte(`{"timestamp":1}`))
	assert.Error(t, err)
}

type memoryWriter struct {
	buf    bytes.Buffer
	closed bool
}

func (m *memoryWriter) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memoryWriter) Close() error                { m.closed = true; return nil }

type memoryFactory struct {
	writers map[string]*memoryWriter
}

func (f *memoryFactory) NewWriter(bucket, objectPath string) (cloudwriter.CloudWriter, error) {
	w := &memoryWriter{}
	f.writers[bucket+"/"+objectPath] = w
	return w, nil
}

func TestParquetOutputCloud(t *testing.T) {
	factory := &memoryFactory{writers: make(map[string]*memoryWriter)}
	out := NewCloudParquetOutput(factory, "bucket", "exports")

	o := &models.DecisionOutcome{DecisionID: "d1", EvaluatedAt: eventTime, AccuracyScore: 0.8, Evaluation: "highly accurate"}
	require.NoError(t, Publish(out, models.TopicOutcomeEvents, NewOutcomeEvent(sampleDecision(), o)))
	require.NoError(t, out.Close())

	w, ok := factory.writers["bucket/exports/outcome_events/year=2024/month=07/day=09/hour=14/data.parquet"]
	require.True(t, ok)
	assert.True(t, w.closed)
	assert.True(t, bytes.HasPrefix(w.buf.Bytes(), []byte("PAR1")))
}

func TestKafkaOutput(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "profitlens.decision_events" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	out := NewKafkaOutputWithProducer(producer, "profitlens.")
	ev := NewDecisionEvent(EventDecisionStatusChanged, sampleDecision(), eventTime)
	require.NoError(t, Publish(out, models.TopicDecisionEvents, ev))
	assert.ErrorIs(t, Publish(out, models.TopicDecisionEvents, ev), sarama.ErrOutOfBrokers)

	require.NoError(t, out.Close())
	assert.Error(t, out.WriteMessage(models.TopicDecisionEvents, []byte("{}")))
}

func TestNewSelectsDestination(t *testing.T) {
	cfg := &models.Config{Output: models.OutputConfig{Format: "json", Path: t.TempDir()}}
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &JSONOutput{}, d)

	cfg.Output.Format = "console"
	d, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleOutput{}, d)

	cfg.Output.Format = "xml"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
