package domain

type Course struct {
	ID           string   `json:"id"`
	Subject      string   `json:"subject" validate:"required"`
	Number       string   `json:"number" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Term         string   `json:"term" validate:"required"`
	InstructorID string   `json:"instructorId" validate:"required"`
	StudentIDs   []string `json:"studentIds" validate:"dive,required"`
}

// CoursePatch 只携带请求中出现的字段，未出现的字段保持数据库中的原值
type CoursePatch struct {
	Subject      *string `json:"subject" validate:"omitempty,min=1"`
	Number       *string `json:"number" validate:"omitempty,min=1"`
	Title        *string `json:"title" validate:"omitempty,min=1"`
	Term         *string `json:"term" validate:"omitempty,min=1"`
	InstructorID *string `json:"instructorId" validate:"omitempty,min=1"`
}

func (p *CoursePatch) IsEmpty() bool {
	return p.Subject == nil && p.Number == nil && p.Title == nil && p.Term == nil && p.InstructorID == nil
}

func (p *CoursePatch) Apply(c *Course) {
	if p.Subject != nil {
		c.Subject = *p.Subject
	}
	if p.Number != nil {
		c.Number = *p.Number
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Term != nil {
		c.Term = *p.Term
	}
	if p.InstructorID != nil {
		c.InstructorID = *p.InstructorID
	}
}
