package analysis

import (
	"encoding/json"
	"fmt"
)

// ParseResponse decodes the model's reply as a ClusterAnalysis and enforces
// the contract stated in the prompt: strict JSON, exactly wantClusters
// cluster objects, each schema-valid. Any violation is a stage failure, not
// a retry.
func ParseResponse(text string, wantClusters int) (*ClusterAnalysis, error) {
	var result ClusterAnalysis
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if len(result.Clusters) != wantClusters {
		return nil, fmt.Errorf("response has %d clusters, want %d", len(result.Clusters), wantClusters)
	}
	for _, c := range result.Clusters {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}
