package dto

type ClassRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type SubjectRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type ChapterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Position int    `json:"position" validate:"min=0"`
}
