// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/model"
)

const (
	// ModelsPath lists the models the gateway routes.
	ModelsPath = "/models?return_wildcard_routes=false"

	// CostMapPath returns per-model cost details.
	CostMapPath = "/get/litellm_model_cost_map"
)

type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

// CostEntry is the part of a cost map entry this client reads.
type CostEntry struct {
	Provider           string  `json:"litellm_provider"`
	MaxTokens          int     `json:"max_tokens"`
	MaxInputTokens     int     `json:"max_input_tokens"`
	InputCostPerToken  float64 `json:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token"`
	Mode               string  `json:"mode"`
}

// ListModels returns the gateway's models in the order it reports them.
// Providers are inferred from the id alone.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	header := http.Header{}
	header.Set("accept", "application/json")
	header.Set("x-goog-api-key", c.apiKey)

	var resp modelsResponse
	if err := c.getJSON(ctx, ModelsPath, header, &resp); err != nil {
		return nil, err
	}

	models := make([]model.ModelInfo, 0, len(resp.Data))
	for _, m := range resp.Data {
		if m.ID == "" {
			continue
		}
		models = append(models, model.ModelInfo{
			ID:       m.ID,
			Object:   m.Object,
			Created:  m.Created,
			OwnedBy:  m.OwnedBy,
			Provider: model.InferProvider(m.ID, ""),
		})
	}
	return models, nil
}

// CostMap fetches cost details keyed by model id. Entries whose fields do
// not have the expected types are skipped.
func (c *Client) CostMap(ctx context.Context) (map[string]CostEntry, error) {
	header := http.Header{}
	header.Set("accept", "application/json")
	header.Set("Authorization", "Bearer "+c.apiKey)

	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, CostMapPath, header, &raw); err != nil {
		return nil, err
	}

	costs := make(map[string]CostEntry, len(raw))
	for id, msg := range raw {
		var entry CostEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			continue
		}
		costs[id] = entry
	}
	return costs, nil
}

// Catalog lists the models and enriches them from the cost map. A cost map
// failure is logged and the plain list is returned.
func (c *Client) Catalog(ctx context.Context) ([]model.ModelInfo, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	costs, err := c.CostMap(ctx)
	if err != nil {
		c.logger.Warn("cost map unavailable", "error", err)
		return models, nil
	}
	return Merge(models, costs), nil
}

// Merge fills provider, context size and pricing from costs. Lookups try
// the full id and then the part after the last "/".
func Merge(models []model.ModelInfo, costs map[string]CostEntry) []model.ModelInfo {
	out := slices.Clone(models)
	for i := range out {
		entry, ok := lookupCost(costs, out[i].ID)
		if !ok {
			continue
		}
		out[i].Provider = model.InferProvider(out[i].ID, entry.Provider)
		out[i].MaxTokens = entry.MaxInputTokens
		if out[i].MaxTokens == 0 {
			out[i].MaxTokens = entry.MaxTokens
		}
		out[i].InputCostPerToken = entry.InputCostPerToken
		out[i].OutputCostPerToken = entry.OutputCostPerToken
		out[i].Mode = entry.Mode
	}
	return out
}

func lookupCost(costs map[string]CostEntry, id string) (CostEntry, bool) {
	if entry, ok := costs[id]; ok {
		return entry, true
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		entry, ok := costs[id[i+1:]]
		return entry, ok
	}
	return CostEntry{}, false
}
