package artifact

import (
	"fmt"
	"strings"
	"time"
)

// Stage object prefixes. Bucket notifications are configured per prefix, so
// these three values define the artifact-chaining contract between stages.
const (
	BeforeClusteringPrefix = "before-clustering/"
	AfterClusteringPrefix  = "after-clustering/"
	AnalysisPrefix         = "analysis-json/"
)

// Key-parsing markers. A stage trigger recovers the document identity from
// an object key by cutting at the marker and taking everything up to the
// next underscore.
const (
	CommentsMarker = "comments_"
	ResultsMarker  = "results_"
)

const keyTimestamp = "20060102_150405"

// CommentsKey names the combined comment CSV that feeds clustering.
func CommentsKey(documentID string, t time.Time) string {
	return fmt.Sprintf("%scomments_%s_%s.csv", BeforeClusteringPrefix, documentID, t.Format(keyTimestamp))
}

// AnalysisKey names the ClusterAnalysis JSON written by the analysis stage.
func AnalysisKey(documentID string, t time.Time) string {
	return fmt.Sprintf("%scomments_%s_%s.json", AnalysisPrefix, documentID, t.Format(keyTimestamp))
}

// AnalysisSearchPrefix is the list prefix matching every analysis artifact
// for one document.
func AnalysisSearchPrefix(documentID string) string {
	return AnalysisPrefix + "comments_" + documentID
}

// DocumentID extracts the document identity embedded in an object key.
// Returns "" when the key does not follow the stage's naming convention;
// callers must treat that as skip-and-log, never as an identity.
func DocumentID(key, marker string) string {
	_, rest, ok := strings.Cut(key, marker)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "_")
	return id
}
