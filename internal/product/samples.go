package product

import (
	"encoding/json"
	"fmt"
	"os"
)

// Samples returns the built-in demonstration products.
func Samples() []Product {
	return []Product{
		{
			ID:             NumericID(1),
			Name:           "Premium Wireless Headphones",
			Price:          129.99,
			Category:       "Electronics",
			ImagePath:      "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400",
			AdditionalInfo: "Noise cancelling, 40-hour battery",
		},
		{
			ID:             NumericID(2),
			Name:           "Running Shoes",
			Price:          89.99,
			Category:       "Sports",
			ImagePath:      "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=400",
			AdditionalInfo: "Lightweight, breathable mesh",
		},
		{
			ID:             NumericID(3),
			Name:           "Office Chair",
			Price:          199.99,
			Category:       "Furniture",
			ImagePath:      "https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=400",
			AdditionalInfo: "Ergonomic design, adjustable height",
		},
	}
}

// LoadFile reads a JSON array of products. Every record is checked with
// ValidateRecord before conversion; the first invalid record fails the load.
func LoadFile(path string) ([]Product, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read products file %s: %w", path, readErr)
	}

	var records []map[string]any

	unmarshalErr := json.Unmarshal(data, &records)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse products file %s: %w", path, unmarshalErr)
	}

	products := make([]Product, 0, len(records))

	for index, record := range records {
		ok, message := ValidateRecord(record)
		if !ok {
			return nil, fmt.Errorf("%w: record %d: %s", ErrInvalidProduct, index+1, message)
		}

		record["price"], _ = numberValue(record["price"])

		raw, marshalErr := json.Marshal(record)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to re-encode record %d: %w", index+1, marshalErr)
		}

		var p Product

		decodeErr := json.Unmarshal(raw, &p)
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidProduct, index+1, decodeErr)
		}

		products = append(products, p)
	}

	return products, nil
}
