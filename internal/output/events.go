package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/xitongsys/parquet-go/schema"
)

const (
	EventDecisionCreated       = "decision_created"
	EventDecisionStatusChanged = "decision_status_changed"
	EventInsightGenerated      = "insight_generated"
	EventOutcomeRecorded       = "outcome_recorded"
	EventBaselineComputed      = "baseline_computed"
)

// DecisionEvent is published when a decision is recorded or changes status.
type DecisionEvent struct {
	Timestamp     int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType     string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID  string  `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	DecisionID    string  `json:"decisionId" parquet:"name=decisionId,type=BYTE_ARRAY,convertedtype=UTF8"`
	DecisionType  string  `json:"decisionType" parquet:"name=decisionType,type=BYTE_ARRAY,convertedtype=UTF8"`
	Category      string  `json:"category" parquet:"name=category,type=BYTE_ARRAY,convertedtype=UTF8"`
	TargetKind    string  `json:"targetKind" parquet:"name=targetKind,type=BYTE_ARRAY,convertedtype=UTF8"`
	TargetID      string  `json:"targetId" parquet:"name=targetId,type=BYTE_ARRAY,convertedtype=UTF8"`
	TargetName    string  `json:"targetName" parquet:"name=targetName,type=BYTE_ARRAY,convertedtype=UTF8"`
	Priority      string  `json:"priority" parquet:"name=priority,type=BYTE_ARRAY,convertedtype=UTF8"`
	Status        string  `json:"status" parquet:"name=status,type=BYTE_ARRAY,convertedtype=UTF8"`
	ImpactMin     float64 `json:"impactMin" parquet:"name=impactMin,type=DOUBLE"`
	ImpactMax     float64 `json:"impactMax" parquet:"name=impactMax,type=DOUBLE"`
	Confidence    int32   `json:"confidence" parquet:"name=confidence,type=INT32"`
	PercentChange float64 `json:"percentChange" parquet:"name=percentChange,type=DOUBLE"`
	Rationale     string  `json:"rationale" parquet:"name=rationale,type=BYTE_ARRAY,convertedtype=UTF8"`
	Risks         string  `json:"risks" parquet:"name=risks,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// InsightEvent carries a revenue decomposition. Amounts are rounded to cents.
type InsightEvent struct {
	Timestamp         int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType         string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID      string  `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	InsightID         string  `json:"insightId" parquet:"name=insightId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Severity          string  `json:"severity" parquet:"name=severity,type=BYTE_ARRAY,convertedtype=UTF8"`
	CurrentRevenue    float64 `json:"currentRevenue" parquet:"name=currentRevenue,type=DOUBLE"`
	ComparisonRevenue float64 `json:"comparisonRevenue" parquet:"name=comparisonRevenue,type=DOUBLE"`
	VolumeEffect      float64 `json:"volumeEffect" parquet:"name=volumeEffect,type=DOUBLE"`
	PriceEffect       float64 `json:"priceEffect" parquet:"name=priceEffect,type=DOUBLE"`
	MixEffect         float64 `json:"mixEffect" parquet:"name=mixEffect,type=DOUBLE"`
	PercentChange     float64 `json:"percentChange" parquet:"name=percentChange,type=DOUBLE"`
	Confidence        float64 `json:"confidence" parquet:"name=confidence,type=DOUBLE"`
	SampleSize        int32   `json:"sampleSize" parquet:"name=sampleSize,type=INT32"`
	Explanation       string  `json:"explanation" parquet:"name=explanation,type=BYTE_ARRAY,convertedtype=UTF8"`
	Recommendation    string  `json:"recommendation" parquet:"name=recommendation,type=BYTE_ARRAY,convertedtype=UTF8"`
	ExpiresAt         int64   `json:"expiresAt" parquet:"name=expiresAt,type=INT64"`
}

type OutcomeEvent struct {
	Timestamp        int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType        string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID     string  `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	DecisionID       string  `json:"decisionId" parquet:"name=decisionId,type=BYTE_ARRAY,convertedtype=UTF8"`
	DecisionType     string  `json:"decisionType" parquet:"name=decisionType,type=BYTE_ARRAY,convertedtype=UTF8"`
	PredictedPercent float64 `json:"predictedPercent" parquet:"name=predictedPercent,type=DOUBLE"`
	ActualPercent    float64 `json:"actualPercent" parquet:"name=actualPercent,type=DOUBLE"`
	BeforeValue      float64 `json:"beforeValue" parquet:"name=beforeValue,type=DOUBLE"`
	AfterValue       float64 `json:"afterValue" parquet:"name=afterValue,type=DOUBLE"`
	Accuracy         float64 `json:"accuracy" parquet:"name=accuracy,type=DOUBLE"`
	Evaluation       string  `json:"evaluation" parquet:"name=evaluation,type=BYTE_ARRAY,convertedtype=UTF8"`
}

type BaselineEvent struct {
	Timestamp        int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType        string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID     string  `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	MenuItemID       string  `json:"menuItemId" parquet:"name=menuItemId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Version          int32   `json:"version" parquet:"name=version,type=INT32"`
	SampleDays       int32   `json:"sampleDays" parquet:"name=sampleDays,type=INT32"`
	AvgDailyQuantity float64 `json:"avgDailyQuantity" parquet:"name=avgDailyQuantity,type=DOUBLE"`
	StdDailyQuantity float64 `json:"stdDailyQuantity" parquet:"name=stdDailyQuantity,type=DOUBLE"`
	AvgDailyRevenue  float64 `json:"avgDailyRevenue" parquet:"name=avgDailyRevenue,type=DOUBLE"`
	Confidence       float64 `json:"confidence" parquet:"name=confidence,type=DOUBLE"`
}

func NewDecisionEvent(eventType string, d *models.Decision, at time.Time) DecisionEvent {
	return DecisionEvent{
		Timestamp:     at.Unix(),
		EventType:     eventType,
		RestaurantID:  d.RestaurantID,
		DecisionID:    d.ID,
		DecisionType:  string(d.Type),
		Category:      string(d.Category),
		TargetKind:    string(d.Target.Kind),
		TargetID:      d.Target.EntityID,
		TargetName:    d.Target.Name,
		Priority:      string(d.Priority),
		Status:        string(d.Status),
		ImpactMin:     d.PredictedImpact.Min,
		ImpactMax:     d.PredictedImpact.Max,
		Confidence:    int32(d.PredictedImpact.Confidence),
		PercentChange: d.PredictedImpact.Revenue.PercentChange,
		Rationale:     d.Rationale,
		Risks:         strings.Join(d.Risks, "; "),
	}
}

func NewInsightEvent(in *models.Insight) InsightEvent {
	ev := InsightEvent{
		Timestamp:         in.CreatedAt.Unix(),
		EventType:         EventInsightGenerated,
		RestaurantID:      in.RestaurantID,
		InsightID:         in.ID,
		Severity:          string(in.Severity),
		CurrentRevenue:    in.CurrentRevenue.Round(2).InexactFloat64(),
		ComparisonRevenue: in.ComparisonRevenue.Round(2).InexactFloat64(),
		PercentChange:     in.PercentChange,
		Confidence:        in.Confidence,
		SampleSize:        int32(in.SampleSize),
		Explanation:       in.Explanation,
		Recommendation:    in.Recommendation,
		ExpiresAt:         in.ExpiresAt.Unix(),
	}
	for _, f := range in.Factors {
		v := f.Contribution.Round(2).InexactFloat64()
		switch f.Factor {
		case models.FactorVolume:
			ev.VolumeEffect = v
		case models.FactorPrice:
			ev.PriceEffect = v
		case models.FactorMix:
			ev.MixEffect = v
		}
	}
	return ev
}

func NewOutcomeEvent(d *models.Decision, o *models.DecisionOutcome) OutcomeEvent {
	return OutcomeEvent{
		Timestamp:        o.EvaluatedAt.Unix(),
		EventType:        EventOutcomeRecorded,
		RestaurantID:     d.RestaurantID,
		DecisionID:       d.ID,
		DecisionType:     string(d.Type),
		PredictedPercent: d.PredictedImpact.Revenue.PercentChange,
		ActualPercent:    o.ActualImpact.Revenue.PercentChange,
		BeforeValue:      o.ActualImpact.Revenue.BeforeValue,
		AfterValue:       o.ActualImpact.Revenue.AfterValue,
		Accuracy:         o.AccuracyScore,
		Evaluation:       o.Evaluation,
	}
}

func NewBaselineEvent(b *models.ItemBaseline) BaselineEvent {
	return BaselineEvent{
		Timestamp:        b.ComputedAt.Unix(),
		EventType:        EventBaselineComputed,
		RestaurantID:     b.RestaurantID,
		MenuItemID:       b.MenuItemID,
		Version:          int32(b.Version),
		SampleDays:       int32(b.SampleDays),
		AvgDailyQuantity: b.AvgDailyQuantity,
		StdDailyQuantity: b.StdDailyQuantity,
		AvgDailyRevenue:  b.AvgDailyRevenue,
		Confidence:       b.Confidence,
	}
}

// newEventForTopic returns a pointer to the event struct written to topic.
func newEventForTopic(topic string) (interface{}, error) {
	switch topic {
	case models.TopicDecisionEvents:
		return new(DecisionEvent), nil
	case models.TopicInsightEvents:
		return new(InsightEvent), nil
	case models.TopicOutcomeEvents:
		return new(OutcomeEvent), nil
	case models.TopicBaselineEvents:
		return new(BaselineEvent), nil
	}
	return nil, fmt.Errorf("unknown event type: %s", topic)
}

func GetSchema(topic string) (*schema.SchemaHandler, error) {
	obj, err := newEventForTopic(topic)
	if err != nil {
		return nil, err
	}
	sh, err := schema.NewSchemaHandlerFromStruct(obj)
	if err != nil {
		return nil, fmt.Errorf("error creating schema for %s: %w", topic, err)
	}
	return sh, nil
}
