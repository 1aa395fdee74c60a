package manifest

import "github.com/bryanwahyu/docgate/internal/domain/ingest"

// FileQuality is the per-file slice of a quality report.
type FileQuality struct {
	Name              string `json:"name"`
	StorageRef        string `json:"storage_ref"`
	Succeeded         bool   `json:"succeeded"`
	VisionRequired    bool   `json:"vision_required"`
	VisionCoverageMet bool   `json:"vision_coverage_met"`
	Error             string `json:"error,omitempty"`
}

// QualityReport summarizes how completely a scope's manifest was extracted.
// Derived data only: recomputable at any time from a manifest snapshot.
type QualityReport struct {
	TotalFiles     int           `json:"total_files"`
	SucceededFiles int           `json:"succeeded_files"`
	Score          float64       `json:"score"`
	Files          []FileQuality `json:"files"`
}

// ComputeQuality scores a manifest snapshot. Pure function: the snapshot is
// never mutated. An empty manifest scores 0.
func ComputeQuality(files []*ingest.File) QualityReport {
	report := QualityReport{Files: make([]FileQuality, 0, len(files))}
	for _, f := range files {
		fq := FileQuality{
			Name:           f.Name,
			StorageRef:     f.StorageRef,
			Succeeded:      f.ExtractionSucceeded(),
			VisionRequired: f.Route == ingest.RouteVision,
			Error:          f.ExtractionError,
		}
		fq.VisionCoverageMet = fq.VisionRequired && fq.Succeeded &&
			f.Extraction.Provenance.Route == ingest.RouteVision
		if fq.Succeeded {
			report.SucceededFiles++
		}
		report.Files = append(report.Files, fq)
	}
	report.TotalFiles = len(files)
	if report.TotalFiles > 0 {
		report.Score = float64(report.SucceededFiles) / float64(report.TotalFiles)
	}
	return report
}
