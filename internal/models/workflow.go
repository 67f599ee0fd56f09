package models

import (
	"time"

	"github.com/applyforge/applyforge/internal/common"
)

// Workflow is the persisted record of one document-generation run.
//
// The input snapshot is immutable after creation. Status, Progress,
// CurrentStep, Result and Error are owned exclusively by the workflow
// orchestrator; no other component writes them.
type Workflow struct {
	ID          string           `json:"id" badgerhold:"key"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`     // 0-100, monotone within one run
	CurrentStep string           `json:"current_step"` // Operator-facing stage label, not used for control
	Input       *WorkflowRequest `json:"input"`
	Result      *WorkflowResult  `json:"result,omitempty"` // Set only when Status == completed
	Error       string           `json:"error,omitempty"`  // Set only when Status == failed
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewWorkflow creates a pending workflow record from an input snapshot
func NewWorkflow(input *WorkflowRequest) *Workflow {
	now := time.Now()
	return &Workflow{
		ID:          common.NewWorkflowID(),
		Status:      JobStatusPending,
		Progress:    0,
		CurrentStep: "initializing",
		Input:       input,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WorkflowResult references the artifacts produced by a completed workflow
type WorkflowResult struct {
	SiteHTMLPath  string `json:"site_html_path"`
	SitePDFPath   string `json:"site_pdf_path"`
	QRImagePath   string `json:"qr_image_path"`
	LetterPDFPath string `json:"letter_pdf_path"`
	SiteURL       string `json:"site_url"` // Public locator under /hosted-sites
}

// WorkflowRequest is the immutable submission payload for a workflow
type WorkflowRequest struct {
	PersonalInfo  PersonalInfo    `json:"personalInfo" validate:"required"`
	CompanyInfo   CompanyInfo     `json:"companyInfo" validate:"required"`
	SiteContent   SiteContent     `json:"siteContent" validate:"required"`
	LetterContent LetterContent   `json:"letterContent" validate:"required"`
	Options       WorkflowOptions `json:"options"`
}

type PersonalInfo struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

type CompanyInfo struct {
	Name     string `json:"name" validate:"required"`
	Position string `json:"position" validate:"required"`
}

type SiteContent struct {
	Template       string          `json:"template" validate:"required,oneof=elegant synthwave"`
	Title          string          `json:"title" validate:"required"`
	Subtitle       string          `json:"subtitle"`
	About          string          `json:"about"`
	MatchingPoints []MatchingPoint `json:"matchingPoints"`
	Stats          []Stat          `json:"stats"`
}

type MatchingPoint struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Stat struct {
	Number string `json:"number"`
	Label  string `json:"label"`
}

type LetterContent struct {
	Template     string `json:"template" validate:"required"`
	Introduction string `json:"introduction"`
	Motivation   string `json:"motivation"`
	Closing      string `json:"closing"`
}

type WorkflowOptions struct {
	QRStyle string `json:"qrStyle" validate:"omitempty,oneof=standard elegant"`
}
