package agents

import "github.com/logia/logia/internal/protocol"

// The preset simulators mirror the delivery fleet's three specialist
// agents: route re-planning, safety assessment, and order cancellation.
// Their rule tables are ordered most-severe first.

// NewReroutingAgent answers route and schedule disruptions with reroutes.
func NewReroutingAgent(opts ...SimOption) *Simulator {
	return NewSimulator(
		protocol.AgentDescriptor{
			Name: "rerouting",
			Capabilities: []protocol.DisruptionType{
				protocol.DisruptionBlockedRoute,
				protocol.DisruptionMissedWindow,
			},
			Weight: 1.0,
		},
		[]Rule{
			{
				Type:        protocol.DisruptionBlockedRoute,
				MinSeverity: 4,
				Recommendation: protocol.Recommendation{
					Kind:     protocol.RecommendReroute,
					NewRoute: "arterial detour via staging depot",
				},
				Confidence: 0.6,
			},
			{
				Type:        protocol.DisruptionBlockedRoute,
				MinSeverity: 1,
				Recommendation: protocol.Recommendation{
					Kind:     protocol.RecommendReroute,
					NewRoute: "parallel corridor, next exit",
				},
				Confidence: 0.8,
			},
			{
				Type:        protocol.DisruptionMissedWindow,
				MinSeverity: 1,
				Recommendation: protocol.Recommendation{
					Kind:     protocol.RecommendReroute,
					NewRoute: "express corridor, skip remaining stops",
				},
				Confidence: 0.55,
			},
		},
		opts...,
	)
}

// NewSafetyAgent assesses cargo and route risk. It weighs more than the
// other agents; its cancellations are hard to outvote.
func NewSafetyAgent(opts ...SimOption) *Simulator {
	return NewSimulator(
		protocol.AgentDescriptor{
			Name: "safety",
			Capabilities: []protocol.DisruptionType{
				protocol.DisruptionSpoiledCargo,
				protocol.DisruptionBlockedRoute,
			},
			Weight: 1.5,
		},
		[]Rule{
			{
				Type:        protocol.DisruptionSpoiledCargo,
				MinSeverity: 4,
				Recommendation: protocol.Recommendation{
					Kind:   protocol.RecommendCancel,
					Reason: "cargo unsafe for delivery",
				},
				Confidence: 0.9,
			},
			{
				Type:        protocol.DisruptionSpoiledCargo,
				MinSeverity: 1,
				Recommendation: protocol.Recommendation{
					Kind:   protocol.RecommendEscalate,
					Reason: "cargo condition needs inspection",
				},
				Confidence: 0.6,
			},
			{
				Type:        protocol.DisruptionBlockedRoute,
				MinSeverity: 5,
				Recommendation: protocol.Recommendation{
					Kind:   protocol.RecommendEscalate,
					Reason: "route hazard requires operator review",
				},
				Confidence: 0.7,
			},
		},
		opts...,
	)
}

// NewCancellationAgent handles orders that can no longer be fulfilled.
func NewCancellationAgent(opts ...SimOption) *Simulator {
	return NewSimulator(
		protocol.AgentDescriptor{
			Name: "cancellation",
			Capabilities: []protocol.DisruptionType{
				protocol.DisruptionSpoiledCargo,
				protocol.DisruptionMissedWindow,
			},
			Weight: 1.0,
		},
		[]Rule{
			{
				Type:        protocol.DisruptionSpoiledCargo,
				MinSeverity: 3,
				Recommendation: protocol.Recommendation{
					Kind:   protocol.RecommendCancel,
					Reason: "spoiled shipment cannot be delivered",
				},
				Confidence: 0.75,
			},
			{
				Type:        protocol.DisruptionMissedWindow,
				MinSeverity: 4,
				Recommendation: protocol.Recommendation{
					Kind:   protocol.RecommendCancel,
					Reason: "delivery window missed beyond recovery",
				},
				Confidence: 0.65,
			},
			{
				Type:        protocol.DisruptionMissedWindow,
				MinSeverity: 1,
				Recommendation: protocol.Recommendation{
					Kind: protocol.RecommendNoAction,
				},
				Confidence: 0.45,
			},
		},
		opts...,
	)
}
