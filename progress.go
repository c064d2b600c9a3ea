package tabular

// Progress is one notification from a bulk population run. RowsCreated is
// cumulative across the run and monotonic; batches are submitted serially so
// a later notification never reports a smaller count.
type Progress struct {
	Running            bool
	BatchNumber        int
	TotalBatches       int
	RowsCreatedInBatch int
	RowsCreated        int
}
