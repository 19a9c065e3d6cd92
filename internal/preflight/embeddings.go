package preflight

import (
	"context"
	"fmt"
)

// probeText is embedded once to confirm the provider and vector width.
const probeText = "slackmcp doctor"

// CheckEmbeddings checks that the semantic leg can embed queries. A failure
// is not critical: searches with a zero semantic weight still run.
func (c *Checker) CheckEmbeddings(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embeddings",
		Required: false,
	}

	emb := c.cfg.Embeddings
	if !c.cfg.SemanticEnabled() {
		result.Status = StatusWarn
		result.Message = "disabled (keyword search only)"
		return result
	}

	if emb.APIKey == "" && emb.BaseURL == "" {
		result.Status = StatusFail
		result.Message = "no API key configured"
		result.Details = "Set OPENAI_API_KEY, or embeddings.provider: none for keyword search only."
		return result
	}

	if c.embedder == nil {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s configured", emb.Model)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	vec, err := c.embedder.Embed(ctx, probeText)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("probe failed: %v", err)
		return result
	}
	if emb.Dimensions > 0 && len(vec) != emb.Dimensions {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s returned %d dimensions, archive expects %d",
			c.embedder.ModelName(), len(vec), emb.Dimensions)
		result.Details = "Use the model the messages were embedded with."
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dimensions)", c.embedder.ModelName(), len(vec))
	return result
}
