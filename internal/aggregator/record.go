package aggregator

// RawRecord is the hot-path record shape of §3, produced by the Recorder and
// consumed here in batches. Defined in this package (rather than recorder)
// so the Recorder can depend on the Aggregator without a cycle.
type RawRecord struct {
	T                int64
	MethodID         int
	LatencyMs        float64
	OK               bool
	ErrorCategoryInt int
	ErrorCode        int
	ConcurrencyLevel int
	Phase            int
}
