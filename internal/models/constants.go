package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Channel is the sales channel an order came through.
type Channel string

const (
	ChannelWalkIn         Channel = "walk_in"
	ChannelBooking        Channel = "booking"
	ChannelDirectDelivery Channel = "direct_delivery"
	ChannelUberEats       Channel = "ubereats"
	ChannelDeliveroo      Channel = "deliveroo"
	ChannelJustEat        Channel = "justeat"
)

// DefaultAggregatorChannels are the third-party marketplaces that charge a commission.
var DefaultAggregatorChannels = []Channel{ChannelUberEats, ChannelDeliveroo, ChannelJustEat}

// AllChannels lists every known channel, direct first.
var AllChannels = []Channel{
	ChannelWalkIn,
	ChannelBooking,
	ChannelDirectDelivery,
	ChannelUberEats,
	ChannelDeliveroo,
	ChannelJustEat,
}

type DecisionType string

const (
	DecisionPromote  DecisionType = "promote"
	DecisionReprice  DecisionType = "reprice"
	DecisionRemove   DecisionType = "remove"
	DecisionOptimize DecisionType = "optimize"
)

type DecisionCategory string

const (
	CategoryMenu     DecisionCategory = "menu"
	CategoryChannel  DecisionCategory = "channel"
	CategoryCapacity DecisionCategory = "capacity"
)

type DecisionStatus string

const (
	DecisionStatusPending     DecisionStatus = "pending"
	DecisionStatusAccepted    DecisionStatus = "accepted"
	DecisionStatusRejected    DecisionStatus = "rejected"
	DecisionStatusImplemented DecisionStatus = "implemented"
	DecisionStatusDismissed   DecisionStatus = "dismissed"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting, higher first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type TargetKind string

const (
	TargetItem       TargetKind = "item"
	TargetChannel    TargetKind = "channel"
	TargetOperations TargetKind = "operations"
)

// MenuQuadrant is the popularity x margin classification of a menu item.
type MenuQuadrant string

const (
	QuadrantStar      MenuQuadrant = "star"
	QuadrantPlowhorse MenuQuadrant = "plowhorse"
	QuadrantPuzzle    MenuQuadrant = "puzzle"
	QuadrantDog       MenuQuadrant = "dog"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Performance string

const (
	PerformanceAbove  Performance = "above"
	PerformanceBelow  Performance = "below"
	PerformanceNormal Performance = "normal"
)

const (
	InsightTypeRevenueChange = "revenue_change"

	FactorVolume = "volume"
	FactorPrice  = "price"
	FactorMix    = "mix"

	DirectionUp   = "increase"
	DirectionDown = "decrease"
	DirectionFlat = "unchanged"
)

// Event topics published by the engines.
const (
	TopicDecisionEvents = "decision_events"
	TopicInsightEvents  = "insight_events"
	TopicOutcomeEvents  = "outcome_events"
	TopicBaselineEvents = "baseline_events"
)
