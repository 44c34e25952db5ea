// Package prompt builds the text prompts sent with product images.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/mediagen/internal/product"
)

// DefaultWordCount is the target description length for Detailed.
const DefaultWordCount = 150

const wordCountSpread = 50

// ErrMissingVariable is returned by Custom when a placeholder has no value.
var ErrMissingVariable = errors.New("missing variable in template")

const basicTemplate = `Create a product listing for:
- Name: %s
- Price: $%.2f
- Category: %s

Respond with JSON only.`

const detailedTemplate = `You are an expert e-commerce copywriter. Analyze the product image and create a compelling listing.

Product Information:
- Name: %s
- Price: $%.2f
- Category: %s
%s
CRITICAL: Respond with ONLY valid JSON. No markdown, no code blocks, no extra text.

Create this EXACT JSON structure:
{
    "title": "Catchy product title (60 chars max)",
    "description": "Detailed description (%d-%d words)",
    "features": ["Feature 1", "Feature 2", "Feature 3", "Feature 4", "Feature 5"],
    %s
}

Focus on visible details in the image: colors, materials, design, distinctive features.`

const listingTemplate = `You are an expert e-commerce copywriter. Analyze the product image and create a compelling product listing.

Product Information:
- Name: %s
- Price: $%.2f
- Category: %s
%s
CRITICAL: Respond with ONLY valid JSON. No markdown, no code blocks, no extra text.

Create this EXACT JSON structure:
{
    "title": "Catchy product title (60 chars max)",
    "description": "Detailed description mentioning what you see in the image (150-200 words)",
    "features": ["Feature 1", "Feature 2", "Feature 3", "Feature 4", "Feature 5"],
    "keywords": "keyword1, keyword2, keyword3, keyword4, keyword5, keyword6, keyword7"
}

Focus on visible details: colors, materials, design elements, and distinctive features.`

const seoKeywordsLine = `"keywords": "comma,separated,keywords"`

// DetailedOptions configures Detailed.
type DetailedOptions struct {
	Name           string
	Category       string
	AdditionalInfo string
	Price          float64
	WordCount      int
	IncludeSEO     bool
}

// Basic returns a short prompt asking for a JSON listing.
func Basic(name string, price float64, category string) string {
	return fmt.Sprintf(basicTemplate, name, price, category)
}

// Detailed returns the copywriter prompt with optional SEO keywords and a
// target description length. A zero WordCount uses DefaultWordCount.
func Detailed(opts DetailedOptions) string {
	wordCount := opts.WordCount
	if wordCount <= 0 {
		wordCount = DefaultWordCount
	}

	seo := ""
	if opts.IncludeSEO {
		seo = seoKeywordsLine
	}

	return fmt.Sprintf(
		detailedTemplate,
		opts.Name,
		opts.Price,
		opts.Category,
		additionalLine(opts.AdditionalInfo),
		wordCount,
		wordCount+wordCountSpread,
		seo,
	)
}

// DetailedListing returns a builder that renders Detailed for each product,
// asking for SEO keywords and a description of about wordCount words.
func DetailedListing(wordCount int) func(p product.Product) string {
	return func(p product.Product) string {
		return Detailed(DetailedOptions{
			Name:           p.Name,
			Category:       p.Category,
			AdditionalInfo: p.AdditionalInfo,
			Price:          p.Price,
			WordCount:      wordCount,
			IncludeSEO:     true,
		})
	}
}

// Listing returns the prompt used by the listing generator for p.
func Listing(p product.Product) string {
	return fmt.Sprintf(listingTemplate, p.Name, p.Price, p.Category, additionalLine(p.AdditionalInfo))
}

// Custom fills {name} placeholders in template from vars. "{{" and "}}"
// produce literal braces. If any placeholder has no value the template is
// returned unchanged together with ErrMissingVariable.
func Custom(template string, vars map[string]any) (string, error) {
	var out strings.Builder

	for index := 0; index < len(template); index++ {
		char := template[index]

		switch {
		case char == '{' && strings.HasPrefix(template[index:], "{{"):
			out.WriteByte('{')
			index++
		case char == '}' && strings.HasPrefix(template[index:], "}}"):
			out.WriteByte('}')
			index++
		case char == '{':
			end := strings.IndexByte(template[index:], '}')
			if end < 0 {
				out.WriteString(template[index:])

				return out.String(), nil
			}

			name := template[index+1 : index+end]

			value, ok := vars[name]
			if !ok {
				return template, fmt.Errorf("%w: %s", ErrMissingVariable, name)
			}

			fmt.Fprint(&out, value)

			index += end
		default:
			out.WriteByte(char)
		}
	}

	return out.String(), nil
}

func additionalLine(info string) string {
	if info == "" {
		return ""
	}

	return "- Additional Info: " + info + "\n"
}
