package enums

import "fmt"

// ProductType discriminates how stock is tracked for a product.
// POOLED products carry a single authoritative counter; SERIALIZED products
// derive their availability from individually tracked instances.
type ProductType string

const (
	ProductTypePooled     ProductType = "pooled"
	ProductTypeSerialized ProductType = "serialized"
)

var validProductTypes = []ProductType{
	ProductTypePooled,
	ProductTypeSerialized,
}

// String implements fmt.Stringer.
func (t ProductType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ProductType.
func (t ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}

// ProductCategory represents the canonical equipment categories in the catalog.
type ProductCategory string

const (
	ProductCategorySeating    ProductCategory = "seating"
	ProductCategoryTables     ProductCategory = "tables"
	ProductCategorySound      ProductCategory = "sound"
	ProductCategoryLighting   ProductCategory = "lighting"
	ProductCategoryVideo      ProductCategory = "video"
	ProductCategoryCatering   ProductCategory = "catering"
	ProductCategoryStructure  ProductCategory = "structure"
	ProductCategoryDecoration ProductCategory = "decoration"
	ProductCategoryTransport  ProductCategory = "transport"
	ProductCategoryOther      ProductCategory = "other"
)

var validProductCategories = []ProductCategory{
	ProductCategorySeating,
	ProductCategoryTables,
	ProductCategorySound,
	ProductCategoryLighting,
	ProductCategoryVideo,
	ProductCategoryCatering,
	ProductCategoryStructure,
	ProductCategoryDecoration,
	ProductCategoryTransport,
	ProductCategoryOther,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
