package dto

type ContactRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Type    string `json:"type" binding:"required"`
	Message string `json:"message" binding:"required"`
}
