package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/helpers"
	"github.com/book-expert/mediagen/internal/jsonextract"
	"github.com/book-expert/mediagen/internal/product"
	"github.com/book-expert/mediagen/internal/prompt"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	successRateFormat = "%.1f%%"
	noSuccessRate     = "0%"
	percent           = 100
)

var (
	// ErrInvalidProduct is returned when a product fails validation before any API call.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrImageEncoding is returned when the product image cannot be prepared.
	ErrImageEncoding = errors.New("image encoding failed")
	// ErrUnparseableResponse is returned when no JSON object is found in the API response.
	ErrUnparseableResponse = errors.New("could not extract JSON from response")
)

// ImageEncoder turns an image source into base64 JPEG data.
type ImageEncoder interface {
	EncodeBase64(ctx context.Context, source string) (string, error)
}

// ProductListing is the saved record: the generated listing plus metadata.
type ProductListing struct {
	product.Listing

	ProductID     product.ID `json:"product_id"`
	OriginalName  string     `json:"original_name"`
	OriginalPrice float64    `json:"original_price"`
	Category      string     `json:"category"`
	GeneratedAt   string     `json:"generated_at"`
	ModelUsed     string     `json:"model_used"`
	TokensUsed    int        `json:"tokens_used"`
}

// FailedProduct records why a product in a batch produced no listing.
type FailedProduct struct {
	ID    product.ID `json:"id"`
	Name  string     `json:"name"`
	Error string     `json:"error"`
}

// Summary is written to summary.json after a batch.
type Summary struct {
	RunID            string          `json:"run_id"`
	TotalProducts    int             `json:"total_products"`
	Successful       int             `json:"successful"`
	Failed           int             `json:"failed"`
	SuccessRate      string          `json:"success_rate"`
	TotalTokens      int             `json:"total_tokens"`
	EstimatedCostUSD float64         `json:"estimated_cost_usd"`
	TokenStats       helpers.Stats   `json:"token_stats"`
	Timestamp        string          `json:"timestamp"`
	ModelUsed        string          `json:"model_used"`
	FailedProducts   []FailedProduct `json:"failed_products"`
}

// BatchResult is the outcome of ProcessBatch.
type BatchResult struct {
	Summary     *Summary
	SummaryPath string
	Listings    []*ProductListing
	Failed      []FailedProduct
}

// PromptBuilder returns the text prompt sent with a product's image.
type PromptBuilder func(p product.Product) string

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// Out receives user-facing progress lines. Nil discards them.
	Out              io.Writer
	// Prompt builds the request prompt. Nil uses prompt.Listing.
	Prompt           PromptBuilder
	Model            string
	BatchDelay       time.Duration
	SaveRawResponses bool
}

// Generator orchestrates listing generation for single products and batches.
type Generator struct {
	vision  *VisionClient
	images  ImageEncoder
	files   *FileManager
	limiter *rate.Limiter
	log     *logger.Logger
	out     io.Writer
	prompt  PromptBuilder
	model   string
	saveRaw bool
}

// NewGenerator creates a Generator.
func NewGenerator(
	vision *VisionClient,
	images ImageEncoder,
	files *FileManager,
	opts GeneratorOptions,
	log *logger.Logger,
) *Generator {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	buildPrompt := opts.Prompt
	if buildPrompt == nil {
		buildPrompt = prompt.Listing
	}

	limit := rate.Inf
	if opts.BatchDelay > 0 {
		limit = rate.Every(opts.BatchDelay)
	}

	return &Generator{
		vision:  vision,
		images:  images,
		files:   files,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		out:     out,
		prompt:  buildPrompt,
		model:   opts.Model,
		saveRaw: opts.SaveRawResponses,
	}
}

// ProcessSingle validates p, calls the API, and saves product_<id>.json.
func (g *Generator) ProcessSingle(ctx context.Context, p product.Product) (*ProductListing, error) {
	ok, message := product.Validate(p)
	if !ok {
		g.log.Warn("Invalid product %s: %s", p.ID, message)

		return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, message)
	}

	g.printf("Processing: %s\n", p.Name)

	imageBase64, err := g.images.EncodeBase64(ctx, p.ImagePath)
	if err != nil {
		g.log.Error("Image encoding failed for product %s: %v", p.ID, err)

		return nil, fmt.Errorf("%w: %w", ErrImageEncoding, err)
	}

	g.printf("  Image encoded\n")

	result, err := g.vision.Generate(ctx, g.prompt(p), imageBase64)
	if err != nil {
		g.log.Error("API call failed for product %s: %v", p.ID, err)

		return nil, err
	}

	g.printf("  API call successful (%d tokens)\n", result.TokensUsed)

	data, found := jsonextract.Extract(result.Content)
	if !found {
		g.handleUnparseable(p, result.Content)

		return nil, ErrUnparseableResponse
	}

	listing := &ProductListing{
		Listing:       product.ListingFromMap(data),
		ProductID:     p.ID,
		OriginalName:  p.Name,
		OriginalPrice: p.Price,
		Category:      p.Category,
		GeneratedAt:   time.Now().Format(time.RFC3339),
		ModelUsed:     g.model,
		TokensUsed:    result.TokensUsed,
	}

	valid, problem := product.ValidateListing(listing.Listing)
	if !valid {
		g.log.Warn("Listing for product %s failed validation: %s", p.ID, problem)
		g.printf("  Warning: %s\n", problem)
	}

	path, err := g.files.SaveListing(listing, p.ID)
	if err != nil {
		g.log.Error("Failed to save listing for product %s: %v", p.ID, err)

		return nil, err
	}

	g.log.Info("Saved listing for product %s to %s", p.ID, path)
	g.printf("  Saved: %s\n", path)

	return listing, nil
}

// ProcessBatch processes products one at a time, spacing request starts by
// the configured delay. Failures are recorded and never retried.
func (g *Generator) ProcessBatch(ctx context.Context, products []product.Product) (*BatchResult, error) {
	result := &BatchResult{
		Summary:     nil,
		SummaryPath: "",
		Listings:    []*ProductListing{},
		Failed:      []FailedProduct{},
	}

	g.log.Info("Starting batch of %d products", len(products))
	g.printf("Starting batch processing: %d products\n", len(products))

	for index, p := range products {
		waitErr := g.limiter.Wait(ctx)
		if waitErr != nil {
			return nil, fmt.Errorf("batch interrupted before product %s: %w", p.ID, waitErr)
		}

		g.printf("\n%s ", helpers.Progress(index+1, len(products), ""))

		listing, err := g.ProcessSingle(ctx, p)
		if err != nil {
			g.printf("  Failed: %v\n", err)
			result.Failed = append(result.Failed, FailedProduct{
				ID:    p.ID,
				Name:  p.Name,
				Error: err.Error(),
			})

			continue
		}

		result.Listings = append(result.Listings, listing)
	}

	result.Summary = g.summarize(len(products), result.Listings, result.Failed)

	path, err := g.files.SaveSummary(result.Summary)
	if err != nil {
		return result, fmt.Errorf("failed to save batch summary: %w", err)
	}

	result.SummaryPath = path

	g.log.Info("Batch complete: %d/%d successful", result.Summary.Successful, result.Summary.TotalProducts)

	return result, nil
}

func (g *Generator) summarize(total int, listings []*ProductListing, failed []FailedProduct) *Summary {
	tokens := make([]int, 0, len(listings))
	totalTokens := 0

	for _, listing := range listings {
		tokens = append(tokens, listing.TokensUsed)
		totalTokens += listing.TokensUsed
	}

	successRate := noSuccessRate
	if total > 0 {
		successRate = fmt.Sprintf(successRateFormat, float64(len(listings))/float64(total)*percent)
	}

	return &Summary{
		RunID:            uuid.NewString(),
		TotalProducts:    total,
		Successful:       len(listings),
		Failed:           len(failed),
		SuccessRate:      successRate,
		TotalTokens:      totalTokens,
		EstimatedCostUSD: helpers.CalculateCost(totalTokens, g.model),
		TokenStats:       helpers.Statistics(tokens),
		Timestamp:        time.Now().Format(time.RFC3339),
		ModelUsed:        g.model,
		FailedProducts:   failed,
	}
}

func (g *Generator) handleUnparseable(p product.Product, content string) {
	g.log.Warn("Could not parse JSON for product %s", p.ID)
	g.printf("  Could not parse JSON from response\n")

	if !g.saveRaw {
		return
	}

	path, err := g.files.SaveRawResponse(content, p.ID)
	if err != nil {
		g.log.Error("Failed to save raw response for product %s: %v", p.ID, err)

		return
	}

	g.printf("  Raw response saved: %s\n", path)
}

func (g *Generator) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.out, format, args...)
}
