package metrics

// FileDurationBuckets covers per-file ingestion, from tiny text files to large PDFs.
var FileDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// QueryDurationBuckets covers embedding plus vector search latency.
var QueryDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// ChunkCountBuckets covers chunks produced per file.
var ChunkCountBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}
