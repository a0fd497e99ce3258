package comments

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// csvHeader is the column layout the clustering job expects.
var csvHeader = []string{
	"comment_id", "comment_text", "posted_date", "last_modified_date", "comment_on_document_id",
}

// BuildCSV renders comments into the clustering input format.
func BuildCSV(items []Comment) ([]byte, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no comments to write")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range items {
		row := []string{c.CommentID, c.CommentText, c.PostedDate, c.LastModifiedDate, c.CommentOnDocumentID}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
