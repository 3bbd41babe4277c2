package models

import "time"

// DecisionTarget identifies what a decision acts on: a menu item, a channel or an
// operational area.
type DecisionTarget struct {
	Kind     TargetKind `json:"kind"`
	EntityID string     `json:"id" gorm:"column:id"`
	Name     string     `json:"name"`
}

// RevenueImpact describes a revenue level before and after a change.
type RevenueImpact struct {
	PercentChange float64 `json:"percent_change"`
	BeforeValue   float64 `json:"before_value"`
	AfterValue    float64 `json:"after_value"`
}

// NewRevenueImpact computes the percent change, reporting 0 when before is 0.
func NewRevenueImpact(before, after float64) RevenueImpact {
	ri := RevenueImpact{BeforeValue: before, AfterValue: after}
	if before != 0 {
		ri.PercentChange = (after - before) / before * 100
	}
	return ri
}

// Impact is a predicted or measured effect of a decision, in currency units.
type Impact struct {
	Min        float64       `json:"min"`
	Max        float64       `json:"max"`
	Confidence int           `json:"confidence"` // 0-100
	Revenue    RevenueImpact `json:"revenue"`
}

type Decision struct {
	ID              string           `json:"id" gorm:"primaryKey"`
	RestaurantID    string           `json:"restaurant_id" gorm:"index"`
	Type            DecisionType     `json:"type" gorm:"index"`
	Category        DecisionCategory `json:"category"`
	Target          DecisionTarget   `json:"target" gorm:"embedded;embeddedPrefix:target_"`
	Quadrant        MenuQuadrant     `json:"quadrant,omitempty"`
	Priority        Priority         `json:"priority"`
	PredictedImpact Impact           `json:"predicted_impact" gorm:"serializer:json"`
	Rationale       string           `json:"rationale"`
	Recommendation  string           `json:"recommendation"`
	Risks           []string         `json:"risks" gorm:"serializer:json"`
	Status          DecisionStatus   `json:"status" gorm:"index"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ImplementedAt   *time.Time       `json:"implemented_at,omitempty"`
}

// CanTransition reports whether the decision state machine allows from -> to.
// Implemented, rejected and dismissed are terminal.
func (from DecisionStatus) CanTransition(to DecisionStatus) bool {
	switch from {
	case DecisionStatusPending:
		return to == DecisionStatusAccepted ||
			to == DecisionStatusRejected ||
			to == DecisionStatusImplemented ||
			to == DecisionStatusDismissed
	case DecisionStatusAccepted:
		return to == DecisionStatusImplemented || to == DecisionStatusDismissed
	}
	return false
}

func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionStatusPending, DecisionStatusAccepted, DecisionStatusRejected,
		DecisionStatusImplemented, DecisionStatusDismissed:
		return true
	}
	return false
}

// DecisionOutcome is written exactly once per implemented decision.
type DecisionOutcome struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	DecisionID    string    `json:"decision_id" gorm:"uniqueIndex"`
	ActualImpact  Impact    `json:"actual_impact" gorm:"serializer:json"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
	AccuracyScore float64   `json:"accuracy_score"`
	Evaluation    string    `json:"evaluation"`
}

// EvaluationResult is returned by the outcome evaluator.
type EvaluationResult struct {
	DecisionID string           `json:"decision_id"`
	Predicted  RevenueImpact    `json:"predicted"`
	Actual     RevenueImpact    `json:"actual"`
	Accuracy   float64          `json:"accuracy"`
	Evaluation string           `json:"evaluation"`
	Outcome    *DecisionOutcome `json:"outcome"`
	// Baseline is the item's baseline when the decision was made, if it had one.
	Baseline *ItemBaseline `json:"baseline,omitempty"`
}
