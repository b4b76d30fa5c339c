package dto

// RegisterForm represents the text fields of a registration request.
// Files are read from the multipart form separately.
type RegisterForm struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Fullname string `form:"fullname" json:"fullname"`
	Password string `form:"password" json:"password"`
}

// LoginRequest represents a login request. Either username or email identifies the user.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token when it is not sent as a cookie
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateDetailsRequest represents an account details update
type UpdateDetailsRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}
