package dto

type TokenInput struct {
	Token string `json:"token" validate:"required"`
}

type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
