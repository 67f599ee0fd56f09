package models

import (
	"time"

	"github.com/applyforge/applyforge/internal/common"
)

// JobOffer is a tracked job posting. CRUD-owned; the execution subsystems
// never mutate offers.
type JobOffer struct {
	ID                 string    `json:"id" badgerhold:"key"`
	Name               string    `json:"name" badgerhold:"unique"`
	Slug               string    `json:"slug" badgerhold:"unique"`
	URL                string    `json:"url" badgerhold:"unique"`
	CompanyName        string    `json:"company_name,omitempty"`
	JobTitle           string    `json:"job_title,omitempty"`
	ResumeJob          string    `json:"resume_job,omitempty"`
	CVPersonalization  string    `json:"cv_personalization_hint,omitempty"`
	Salary             string    `json:"salary,omitempty"`
	RemotePolicy       string    `json:"remote_policy,omitempty"`
	CVMatchScore       float64   `json:"cv_match_score,omitempty"`
	CVMatchScoreReason string    `json:"cv_match_score_reason,omitempty"`
	Status             string    `json:"status"`
	RerunWorkflow      bool      `json:"rerun_workflow"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewJobOffer creates an offer record with defaults applied
func NewJobOffer() *JobOffer {
	now := time.Now()
	return &JobOffer{
		ID:        common.NewOfferID(),
		Status:    "new",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OfferEvent is the payload sent to the outbound webhook on offer creation
type OfferEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}
