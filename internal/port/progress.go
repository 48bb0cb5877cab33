package port

import "docindex/internal/domain"

// ProgressObserver receives indexing progress in emission order.
type ProgressObserver interface {
	OnProgress(p domain.IndexingProgress)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(p domain.IndexingProgress)

func (f ProgressFunc) OnProgress(p domain.IndexingProgress) { f(p) }
