// Package product defines the product and listing records and their validators.
package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validation messages.
const (
	msgNameEmpty        = "Product name cannot be empty"
	msgPriceNegative    = "Price cannot be negative"
	msgPriceInvalid     = "Price must be a valid number"
	msgImagePathEmpty   = "Image path cannot be empty"
	msgMissingFieldFmt  = "Missing required field: %s"
	msgTitleLength      = "Title must be 1-100 characters"
	msgDescriptionShort = "Description must be at least 50 characters"
	msgFeaturesEmpty    = "Features must be a non-empty list"
	msgKeywordsEmpty    = "Keywords must be a non-empty string"
)

// Listing bounds.
const (
	MaxTitleLength       = 100
	MinDescriptionLength = 50
)

var (
	// ErrInvalidID is returned when a product identifier is neither a string nor a number.
	ErrInvalidID = errors.New("product id must be a string or a number")
	// ErrInvalidProduct is returned when a product record fails validation.
	ErrInvalidProduct = errors.New("invalid product")
)

// ID identifies a product. It accepts a JSON number or a JSON string and
// always serializes back in the form it was read.
type ID struct {
	value   string
	numeric bool
}

// NumericID returns an ID holding an integer.
func NumericID(n int) ID {
	return ID{value: strconv.Itoa(n), numeric: true}
}

// StringID returns an ID holding a string.
func StringID(s string) ID {
	return ID{value: s, numeric: false}
}

// String returns the identifier as used in file names.
func (id ID) String() string {
	return id.value
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}

	if id.numeric {
		return []byte(id.value), nil
	}

	data, err := json.Marshal(id.value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product id: %w", err)
	}

	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	if bytes.Equal(trimmed, []byte("null")) {
		*id = ID{value: "", numeric: false}

		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string

		err := json.Unmarshal(trimmed, &s)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidID, err)
		}

		*id = StringID(s)

		return nil
	}

	var n json.Number

	err := json.Unmarshal(trimmed, &n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	}

	*id = ID{value: n.String(), numeric: true}

	return nil
}

// Product is the input record for listing generation.
type Product struct {
	ID             ID      `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Category       string  `json:"category"`
	ImagePath      string  `json:"image_path"`
	AdditionalInfo string  `json:"additional_info,omitempty"`
}

// Listing is the generated copy for a product.
type Listing struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Keywords    string   `json:"keywords"`
}

// Validate checks a product for a non-blank name, a finite non-negative price,
// and a non-blank image path. The message is empty on success.
func Validate(p Product) (bool, string) {
	if strings.TrimSpace(p.Name) == "" {
		return false, msgNameEmpty
	}

	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return false, msgPriceInvalid
	}

	if p.Price < 0 {
		return false, msgPriceNegative
	}

	if strings.TrimSpace(p.ImagePath) == "" {
		return false, msgImagePathEmpty
	}

	return true, ""
}

// ValidateRecord checks a loosely typed product record, such as one decoded
// from user-edited JSON, before it is converted to a Product.
func ValidateRecord(record map[string]any) (bool, string) {
	for _, field := range []string{"id", "name", "price", "category", "image_path"} {
		if _, ok := record[field]; !ok {
			return false, fmt.Sprintf(msgMissingFieldFmt, field)
		}
	}

	name := stringValue(record["name"])
	if strings.TrimSpace(name) == "" {
		return false, msgNameEmpty
	}

	price, ok := numberValue(record["price"])
	if !ok {
		return false, msgPriceInvalid
	}

	if price < 0 {
		return false, msgPriceNegative
	}

	if strings.TrimSpace(stringValue(record["image_path"])) == "" {
		return false, msgImagePathEmpty
	}

	return true, ""
}

// ValidateListing checks the generated listing bounds. The message is empty on success.
func ValidateListing(l Listing) (bool, string) {
	titleLength := utf8.RuneCountInString(l.Title)
	if titleLength == 0 || titleLength > MaxTitleLength {
		return false, msgTitleLength
	}

	if utf8.RuneCountInString(l.Description) < MinDescriptionLength {
		return false, msgDescriptionShort
	}

	if len(l.Features) == 0 {
		return false, msgFeaturesEmpty
	}

	if l.Keywords == "" {
		return false, msgKeywordsEmpty
	}

	return true, ""
}

// ListingFromMap builds a Listing from an extracted JSON object. Missing or
// mistyped fields are left empty so that ValidateListing reports them.
func ListingFromMap(data map[string]any) Listing {
	listing := Listing{
		Title:       stringValue(data["title"]),
		Description: stringValue(data["description"]),
		Features:    nil,
		Keywords:    "",
	}

	if features, ok := data["features"].([]any); ok {
		for _, feature := range features {
			listing.Features = append(listing.Features, fmt.Sprint(feature))
		}
	}

	if keywords, ok := data["keywords"].(string); ok {
		listing.Keywords = keywords
	}

	return listing
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func numberValue(value any) (float64, bool) {
	var number float64

	switch v := value.(type) {
	case float64:
		number = v
	case int:
		number = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}

		number = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		number = parsed
	default:
		return 0, false
	}

	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}

	return number, true
}
