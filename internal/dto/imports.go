package dto

import "github.com/noah-isme/cbcs-registration/internal/models"

// ImportAccepted is returned when an import runs in the background.
type ImportAccepted struct {
	JobID  string                 `json:"job_id"`
	Status models.ImportJobStatus `json:"status"`
}
