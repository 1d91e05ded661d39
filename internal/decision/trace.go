package decision

// NodeTrace records one executed node. Sub-decision traces nest in TraceData.
type NodeTrace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Input       any    `json:"input"`
	Output      any    `json:"output"`
	Order       int    `json:"order"`
	Performance string `json:"performance"`
	TraceData   any    `json:"traceData,omitempty"`
}
