package domain

import "strings"

// Category is the label bucket a clip is filed under.
type Category string

const (
	CategoryBusiness     Category = "Business"
	CategoryHealth       Category = "Health"
	CategoryMindset      Category = "Mindset"
	CategoryPolitics     Category = "Politics"
	CategoryReligion     Category = "Religion"
	CategoryProductivity Category = "Productivity"
	CategoryOther        Category = "Other"
)

// Categories is the allow-list the summarizer chooses from, in display order.
var Categories = []Category{
	CategoryBusiness,
	CategoryHealth,
	CategoryMindset,
	CategoryPolitics,
	CategoryReligion,
	CategoryProductivity,
	CategoryOther,
}

// String returns the string representation of the Category.
func (c Category) String() string {
	return string(c)
}

// CategoryNames returns the allow-list as plain strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// NormalizeCategory matches s case-insensitively against the allow-list.
// Anything else, including the empty string, maps to CategoryOther.
func NormalizeCategory(s string) Category {
	c, ok := LookupCategory(s)
	if !ok {
		return CategoryOther
	}
	return c
}

// LookupCategory reports whether s names an allowed category.
func LookupCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
