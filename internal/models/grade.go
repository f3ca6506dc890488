package models

// Rating bounds shared by grades and answers.
const (
	MinRating = 1
	MaxRating = 5
)

// Grade is the rating an offer owner gives the sender of the first message
// in a thread. UserID is the graded user, AuthorID the offer owner.
type Grade struct {
	BaseModel
	Grade       int    `gorm:"not null;check:chk_grades_grade,grade >= 1 AND grade <= 5" json:"grade"`
	Description string `gorm:"size:255;not null" json:"description"`
	MessageID   uint   `gorm:"uniqueIndex;not null" json:"messageId"`
	UserID      uint   `gorm:"index;not null" json:"userId"`
	AuthorID    uint   `gorm:"index;not null" json:"authorId"`

	Message Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE;" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Author  User    `gorm:"foreignKey:AuthorID" json:"-"`
}

// Answer is the graded user's rebuttal to a grade.
type Answer struct {
	BaseModel
	GradeID     uint   `gorm:"uniqueIndex;not null" json:"gradeId"`
	GradeAnswer int    `gorm:"not null;check:chk_answers_grade_answer,grade_answer >= 1 AND grade_answer <= 5" json:"gradeAnswer"`
	Text        string `gorm:"size:255;not null" json:"text"`

	Grade Grade `gorm:"foreignKey:GradeID;constraint:OnDelete:CASCADE;" json:"-"`
}
