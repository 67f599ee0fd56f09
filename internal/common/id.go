package common

import (
	"github.com/google/uuid"
)

// NewWorkflowID generates a unique workflow ID with the "wf_" prefix
// Format: wf_<uuid>
func NewWorkflowID() string {
	return "wf_" + uuid.New().String()
}

// NewScraperID generates a unique scraper ID with the "scr_" prefix
func NewScraperID() string {
	return "scr_" + uuid.New().String()
}

// NewJobID generates a unique scrape job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewOfferID generates a unique job offer ID with the "offer_" prefix
func NewOfferID() string {
	return "offer_" + uuid.New().String()
}
