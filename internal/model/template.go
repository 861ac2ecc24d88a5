package model

import "time"

// TemplateCategories is the fixed set of valid prompt template categories.
var TemplateCategories = []string{"occasion", "weather", "mood", "style", "color", "season"}

// ValidTemplateCategory reports whether c is one of the known categories.
func ValidTemplateCategory(c string) bool {
	for _, v := range TemplateCategories {
		if v == c {
			return true
		}
	}
	return false
}

// PromptTemplate is an AI prompt template managed through the admin API and
// consumed by the mobile app's recommendation flow.
type PromptTemplate struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Category      string    `json:"category" db:"category"`
	Text          string    `json:"text" db:"text"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedBy     int64     `json:"created_by" db:"created_by"`
	CreatedByName string    `json:"created_by_name" db:"created_by_name"`
	UsageCount    int64     `json:"usage_count" db:"usage_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
