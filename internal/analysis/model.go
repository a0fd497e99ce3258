package analysis

import "fmt"

// Sentiment is the coarse sentiment label attached to each cluster.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ClusterAnalysis is the derived artifact produced once per document by the
// analysis stage and attached to completed status responses.
type ClusterAnalysis struct {
	Clusters []Cluster `json:"clusters"`
}

// Cluster is the model's summary of one comment cluster.
type Cluster struct {
	ClusterName        string    `json:"clusterName"`
	ClusterDescription string    `json:"clusterDescription"`
	OverallSentiment   Sentiment `json:"overallSentiment"`
	RepOrg             []string  `json:"repOrg"`
	RecActions         []string  `json:"recActions"`
	RelComments        []string  `json:"relComments"`
}

// Validate checks one cluster object against the schema.
func (c Cluster) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster missing clusterName")
	}
	switch c.OverallSentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return nil
	default:
		return fmt.Errorf("cluster %q has invalid sentiment %q", c.ClusterName, c.OverallSentiment)
	}
}
