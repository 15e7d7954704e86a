package model

type ContactMessage struct {
	Base
	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email"`
	Subject string `db:"subject" json:"subject"`
	Message string `db:"message" json:"message"`
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=300"`
	Message string `json:"message" binding:"required,max=5000"`
}
