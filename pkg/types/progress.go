package types

// ScanStage labels the phase a running scan is in when progress is reported.
type ScanStage string

const (
	StageScanning       ScanStage = "scanning"
	StageEmbedding      ScanStage = "embedding"
	StageStoring        ScanStage = "storing"
	StageScoringFolders ScanStage = "scoring_folders"
	StageComplete       ScanStage = "complete"
)

// ProgressFunc receives scan progress updates. current and total count units
// of the active stage; currentItem is the path or label being processed.
// Implementations must be fast and must not block; callers treat the callback
// as fire-and-forget and never act on its behalf. A nil ProgressFunc is valid
// and means no reporting.
type ProgressFunc func(current, total int, currentItem string, stage ScanStage)

// Report invokes the callback if it is non-nil.
func (f ProgressFunc) Report(current, total int, currentItem string, stage ScanStage) {
	if f != nil {
		f(current, total, currentItem, stage)
	}
}
