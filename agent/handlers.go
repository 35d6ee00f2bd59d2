package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
	"github.com/Kevin180791/dob-mvp-enhanced/workflow"
)

// Task types the agents handle. Workflow templates reference these in
// their tasks' type field.
const (
	TaskTypeRFIAnalysis  = "rfi_analysis"
	TaskTypePlanReview   = "plan_review"
	TaskTypeCostEstimate = "cost_estimate"
	TaskTypeCoordination = "coordination"
)

// Handlers builds the workflow task handlers for all agents, each backed
// by the same chat model. Register them on an engine with
// engine.RegisterHandler.
func Handlers(m model.ChatModel) map[string]workflow.Handler {
	rfi := NewRFIAnalyst(m)
	plan := NewPlanReviewer(m)
	cost := NewCostEstimator(m)
	coord := NewCoordinator(m)

	return map[string]workflow.Handler{
		TaskTypeRFIAnalysis: func(ctx context.Context, workflowID, taskID string, data map[string]any) (map[string]any, error) {
			var req RFIRequest
			if err := decodeTaskData(data, &req); err != nil {
				return nil, err
			}
			analysis, err := rfi.Analyze(ctx, req)
			if err != nil {
				return nil, err
			}
			return encodeResult(analysis)
		},

		TaskTypePlanReview: func(ctx context.Context, workflowID, taskID string, data map[string]any) (map[string]any, error) {
			var req PlanReviewRequest
			if err := decodeTaskData(data, &req); err != nil {
				return nil, err
			}
			review, err := plan.Review(ctx, req)
			if err != nil {
				return nil, err
			}
			return encodeResult(review)
		},

		TaskTypeCostEstimate: func(ctx context.Context, workflowID, taskID string, data map[string]any) (map[string]any, error) {
			var req CostRequest
			if err := decodeTaskData(data, &req); err != nil {
				return nil, err
			}
			estimate, err := cost.Estimate(ctx, req)
			if err != nil {
				return nil, err
			}
			return encodeResult(estimate)
		},

		TaskTypeCoordination: func(ctx context.Context, workflowID, taskID string, data map[string]any) (map[string]any, error) {
			subject, _ := data["subject"].(string)
			results, _ := data["results"].(map[string]any)
			merged, err := coord.Coordinate(ctx, subject, results)
			if err != nil {
				return nil, err
			}
			return encodeResult(merged)
		},
	}
}

// decodeTaskData maps loosely-typed task data onto a request struct.
func decodeTaskData(data map[string]any, into any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode task data: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode task data: %w", err)
	}
	return nil
}

// encodeResult converts a structured agent result into the generic map
// stored on the completed task.
func encodeResult(result any) (map[string]any, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}
