package dto

type RegisterUserInput struct {
	ID          string  `json:"id" binding:"required,uuid"`
	Username    string  `json:"username" binding:"required,min=3,max=50"`
	DisplayName string  `json:"display_name" binding:"omitempty,max=100"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,url"`
	Role        string  `json:"role" binding:"omitempty,oneof=admin service member"`
}
