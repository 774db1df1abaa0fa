package dto

type SignupInput struct {
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8,password"`
	FullName       string  `json:"full_name" validate:"required,min=3"`
	OrganizationID *string `json:"organization_id,omitempty" validate:"omitempty,uuid"`
}

type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}
