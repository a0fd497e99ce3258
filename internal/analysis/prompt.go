package analysis

import (
	"fmt"
	"strings"
)

const exampleJSON = `{
  "clusters": [
    {
      "clusterName": "Worker Safety Standards",
      "clusterDescription": "Describes the main theme or focus of this cluster.",
      "overallSentiment": "Positive",
      "repOrg": ["Southern Poverty Law Center", "Farmworker Justice"],
      "recActions": ["Withdraw proposed rule", "Implement safety standards"],
      "relComments": ["comment1", "comment2", "comment3"]
    },
    {
      "clusterName": "Economic Impact",
      "clusterDescription": "Describes how new regulations might affect the economy.",
      "overallSentiment": "Neutral",
      "repOrg": ["American Farm Bureau Federation"],
      "recActions": ["Conduct economic impact assessment", "Delay implementation"],
      "relComments": ["comment1", "comment2", "comment3"]
    }
  ]
}`

// BuildPrompt renders the strict-JSON analysis request. The prompt states
// the exact cluster count twice and forbids merging or omission; the
// response validator enforces the same count on the way back.
func BuildPrompt(samples []ClusterSample) string {
	var snippet strings.Builder
	for _, s := range samples {
		fmt.Fprintf(&snippet, "Cluster: %s\n", s.Name)
		snippet.WriteString("Sample Comments:\n")
		for _, c := range s.Comments {
			fmt.Fprintf(&snippet, " - %s\n", c)
		}
		snippet.WriteString("\n")
	}

	n := len(samples)
	return fmt.Sprintf(`You are an LLM that produces STRICT JSON ONLY, nothing else.
Your output must match exactly this structure with ALL clusters included.
You have EXACTLY %d clusters. You MUST produce the same number of cluster objects.
You must NOT merge, combine, or omit any cluster.
If the user has 9 clusters, output 9 clusters in the final JSON.
Here is the desired JSON format (an example):
%s
For each cluster, fill in:
- clusterName
- clusterDescription (a concise summary of the cluster)
- overallSentiment: choose "Positive", "Neutral", or "Negative"
- repOrg: list of representative organizations or stakeholders
- recActions: recommended actions or changes
- relComments: a short curated subset of sample comments from that cluster
Below is the data you have:
%s
Return ONLY valid JSON in the final answer.
IMPORTANT: You must produce an array of %d cluster objects. Do not add extra commentary or text.
`, n, exampleJSON, snippet.String(), n)
}
