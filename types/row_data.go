package types

// RowData is a single row of raw data produced by an artifact loader,
// before it has been parsed into a RawEvent.
type RowData struct {
	// the raw NDJSON line
	Data []byte
	// the artifact the row came from (bucket key or file path)
	SourceLocation string
}
