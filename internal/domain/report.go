package domain

type Outcome string

const (
	OutcomeIndexed Outcome = "indexed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Reason explains an outcome. Indexed files may carry a reason too, e.g. when
// the stored text is an extraction placeholder rather than real content.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonIneligible        Reason = "ineligible"
	ReasonTooShort          Reason = "too_short"
	ReasonAllChunksFailed   Reason = "all_chunks_failed"
	ReasonReadFailed        Reason = "read_failed"
	ReasonExtractionFailed  Reason = "extraction_failed"
	ReasonBinaryPlaceholder Reason = "binary_placeholder"
	ReasonStorageFailed     Reason = "storage_failed"
	ReasonUnchanged         Reason = "unchanged"
	ReasonCancelled         Reason = "cancelled" // run cancelled mid-file; nothing stored
)

// FileReport records what happened to one file during an indexing run.
type FileReport struct {
	Path         string  `json:"path"`
	Outcome      Outcome `json:"outcome"`
	Reason       Reason  `json:"reason,omitempty"`
	ChunksStored int     `json:"chunks_stored"`
	ChunksFailed int     `json:"chunks_failed"`
	Error        string  `json:"error,omitempty"`
}

// IndexReport is the result of one indexing run. Cancelled is set when the
// run stopped early because its context was done; that is not an error.
type IndexReport struct {
	Root      string         `json:"root,omitempty"`
	Files     []FileReport   `json:"files"`
	Removed   []string       `json:"removed,omitempty"` // sources pruned because the file is gone
	Cancelled bool           `json:"cancelled"`
	Status    ProgressStatus `json:"status"`
}

func (r *IndexReport) Count(o Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

func (r *IndexReport) ChunksStored() int {
	n := 0
	for _, f := range r.Files {
		n += f.ChunksStored
	}
	return n
}

func (r *IndexReport) ChunksFailed() int {
	n := 0
	for _, f := range r.Files {
		n += f.ChunksFailed
	}
	return n
}
