package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GradeLevels is the closed set of grade labels an applicant can pick.
var GradeLevels = []string{
	"高一", "高二", "高三",
	"大一", "大二", "大三", "大四",
	"研一", "研二",
	"其他",
}

// Projects is the closed set of programs on offer.
var Projects = []string{
	"Project X人工智能与产品创新实训营",
	"Project Y青年科技创业实训营",
	"Project Z可持续发展与商业影响力实训营",
	"点火计划 创投实战营",
	"名企星程 实习背景跃升计划",
	"还不确定，进一步了解后确定",
}

// Inquiry is one validated program-enrollment submission. Rows are
// written once and never updated.
type Inquiry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Phone       string    `gorm:"not null" json:"phone"`
	Email       string    `gorm:"not null;index" json:"email"`
	GradeLevel  string    `gorm:"not null" json:"gradeLevel"`
	Project     string    `gorm:"not null" json:"project"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submittedAt"`
}

func (Inquiry) TableName() string {
	return "inquiries"
}

func IsGradeLevel(v string) bool {
	return contains(GradeLevels, v)
}

func IsProject(v string) bool {
	return contains(Projects, v)
}

// BeforeCreate enforces the table schema: required columns and enum
// membership are checked here no matter which caller writes the row.
func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.Phone == "" || i.Email == "" {
		return fmt.Errorf("%w: phone and email are required", ErrSchemaViolation)
	}
	if !IsGradeLevel(i.GradeLevel) {
		return fmt.Errorf("%w: gradeLevel %q is not allowed", ErrSchemaViolation, i.GradeLevel)
	}
	if !IsProject(i.Project) {
		return fmt.Errorf("%w: project %q is not allowed", ErrSchemaViolation, i.Project)
	}
	if i.SubmittedAt.IsZero() {
		i.SubmittedAt = time.Now().UTC()
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
