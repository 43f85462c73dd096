package enums

import "fmt"

// ProductCategory classifies catalog listings.
type ProductCategory string

const (
	ProductCategoryKhakhra ProductCategory = "khakhra"
	ProductCategoryFarsan  ProductCategory = "farsan"
	ProductCategorySweets  ProductCategory = "sweets"
	ProductCategoryHamper  ProductCategory = "hamper"
)

var validProductCategories = []ProductCategory{
	ProductCategoryKhakhra,
	ProductCategoryFarsan,
	ProductCategorySweets,
	ProductCategoryHamper,
}

// IsValid reports whether the value matches the canonical product category enum.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts the raw string to ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
