package dtos

type AuthRequest struct {
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	APIKey  string `json:"apiKey"`
	Message string `json:"message"`
}

type GenerateRequest struct {
	JobPosting string `json:"jobPosting"`

	// Optional Fields
	Model        string `json:"model" binding:"omitempty,oneof=fast slow"`                     // Defaults to "fast"
	DocumentType string `json:"documentType" binding:"omitempty,oneof=both cv cover-letter"` // Defaults to "both"
}

// GenerateResponse carries only the documents that were requested. A nil
// field was not asked for; a requested document is present even when empty.
type GenerateResponse struct {
	CV          *string `json:"cv,omitempty"`
	CoverLetter *string `json:"coverLetter,omitempty"`
}

type ClearAllResponse struct {
	Cleared int    `json:"cleared"`
	Failed  int    `json:"failed"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DeleteResponse[T any] struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Deleted T      `json:"deleted"`
}
