package analysis

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// maxSamplesPerCluster bounds how many representative comments are quoted to
// the model for each cluster.
const maxSamplesPerCluster = 5

// Column names in the clustering stage's output CSV.
const (
	clusterIDColumn   = "kmeans_cluster_id"
	commentTextColumn = "comment_text"
)

// ClusterSample is one cluster label with a bounded random sample of its
// comment texts.
type ClusterSample struct {
	Name     string
	Comments []string
}

// SampleClusters parses the clustered CSV and draws at most
// maxSamplesPerCluster comments per cluster label. Clusters are returned in
// sorted label order so the prompt is stable for a given input.
func SampleClusters(csvData []byte) ([]ClusterSample, error) {
	reader := csv.NewReader(strings.NewReader(string(csvData)))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse clustered csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("clustered csv has no data rows")
	}

	clusterIdx, textIdx := -1, -1
	for i, col := range rows[0] {
		switch strings.TrimSpace(col) {
		case clusterIDColumn:
			clusterIdx = i
		case commentTextColumn:
			textIdx = i
		}
	}
	if clusterIdx < 0 || textIdx < 0 {
		return nil, fmt.Errorf("clustered csv missing %s or %s column", clusterIDColumn, commentTextColumn)
	}

	groups := make(map[string][]string)
	for _, row := range rows[1:] {
		if len(row) <= clusterIdx || len(row) <= textIdx {
			continue
		}
		label := strings.TrimSpace(row[clusterIdx])
		if label == "" {
			continue
		}
		groups[label] = append(groups[label], row[textIdx])
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("clustered csv has no labeled rows")
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	samples := make([]ClusterSample, 0, len(labels))
	for _, label := range labels {
		comments := groups[label]
		n := min(maxSamplesPerCluster, len(comments))
		picked := make([]string, len(comments))
		copy(picked, comments)
		rand.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
		samples = append(samples, ClusterSample{
			Name:     "Cluster_" + label,
			Comments: picked[:n],
		})
	}
	return samples, nil
}
