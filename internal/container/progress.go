package container

// ProgressEvent reports extraction or build progress. Consumers
// (a GUI progress bar, a CLI spinner) drain these from a buffered,
// single-producer single-consumer channel; producers never block on
// it: an event that finds the buffer full is dropped.
type ProgressEvent struct {
	CurrentFile string
	BytesDone   uint64
	BytesTotal  uint64
	// LogLine carries subprocess output when a post-install script
	// runs with show_in_ui set; CurrentFile/BytesDone/BytesTotal are
	// zero for this event kind.
	LogLine string
	// Phase names the current pipeline stage ("extracting" or
	// "running-scripts") for UI headings.
	Phase string
	// Done marks the end of extraction: Extract sends one Done=true
	// event after promoting files (dropped like any other event if the
	// buffer is full), and the script runner may still send LogLine
	// events on the same channel afterwards. No producer sets Err.
	Done bool
	Err  error
}
