package events

// Notification is a batch of storage-arrival records, shaped like the S3
// bucket-notification JSON that MinIO and AWS publish. One notification may
// carry several records; each is processed independently.
type Notification struct {
	Records []Record `json:"Records"`
}

// Record is a single object-arrival event.
type Record struct {
	S3 S3Entity `json:"s3"`
}

type S3Entity struct {
	Bucket Bucket `json:"bucket"`
	Object Object `json:"object"`
}

type Bucket struct {
	Name string `json:"name"`
}

type Object struct {
	Key string `json:"key"`
}
