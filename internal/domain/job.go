package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending         JobStatus = "pending"
	JobStatusGeneratingImage JobStatus = "generating_image"
	JobStatusConceptReady    JobStatus = "concept_ready"
	JobStatusConverting3D    JobStatus = "converting_3d"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
)

// Terminal reports whether no further automatic processing happens in this
// state. ConceptReady counts as terminal until a payment event re-enters the job.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusConceptReady, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// ImageStyle enumerates concept styles supported by the image stage.
type ImageStyle string

const (
	ImageStyleFigurine  ImageStyle = "figurine"
	ImageStyleObject    ImageStyle = "object"
	ImageStyleCharacter ImageStyle = "character"
	ImageStyleSculpture ImageStyle = "sculpture"
	ImageStyleMiniature ImageStyle = "miniature"
)

// NormalizeImageStyle maps free-form user input onto a supported style.
// Unknown values fall back to figurine rather than erroring.
func NormalizeImageStyle(style string) ImageStyle {
	switch ImageStyle(style) {
	case ImageStyleObject, ImageStyleCharacter, ImageStyleSculpture, ImageStyleMiniature:
		return ImageStyle(style)
	default:
		return ImageStyleFigurine
	}
}

// Job tracks one prompt through image generation and mesh conversion.
//
// The id carries a "job_" or "concept_" prefix for operator convenience; the
// ConceptOnly column is the source of truth for the pay-gated flow.
type Job struct {
	ID          string
	Description string
	Style       ImageStyle
	SizeMM      float64 // 0 means "decided at checkout" (concept jobs)
	ConceptOnly bool
	Status      JobStatus
	Progress    int

	ImagePath string
	ImageURL  string

	MeshPath string
	MeshURL  string
	// MeshURLs keeps every downloadable format the backend produced
	// (glb, obj, fbx, stl, ...), keyed by format.
	MeshURLs map[string]string

	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobUpdate is a partial merge applied by JobRepository.Update. Nil fields
// are left untouched; updated_at is always refreshed.
type JobUpdate struct {
	Status       *JobStatus
	Progress     *int
	ImagePath    *string
	ImageURL     *string
	MeshPath     *string
	MeshURL      *string
	MeshURLs     map[string]string
	ErrorMessage *string
}

func StatusPtr(s JobStatus) *JobStatus { return &s }
func IntPtr(i int) *int                { return &i }
func StrPtr(s string) *string          { return &s }
