package entity

import "time"

// Blog is a public article. ImagePath names a file in upload storage.
type Blog struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Summary   string    `db:"summary" json:"summary"`
	Content   string    `db:"content" json:"content"`
	Category  string    `db:"category" json:"category"`
	ImagePath string    `db:"image_path" json:"-"`
	HasImage  bool      `db:"-" json:"has_image"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Input struct {
	Title    string `json:"title" validate:"required,max=200"`
	Summary  string `json:"summary" validate:"max=1000"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"max=64"`
}
