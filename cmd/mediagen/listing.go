package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/book-expert/mediagen/internal/helpers"
	"github.com/book-expert/mediagen/internal/imaging"
	"github.com/book-expert/mediagen/internal/listing"
	"github.com/book-expert/mediagen/internal/product"
	"github.com/book-expert/mediagen/internal/prompt"
	"github.com/spf13/cobra"
)

// Flag names and descriptions for the listing commands.
const (
	flagID           = "id"
	flagName         = "name"
	flagPrice        = "price"
	flagCategory     = "category"
	flagImage        = "image"
	flagInfo         = "info"
	flagFile         = "file"
	flagDetailed     = "detailed"
	flagWords        = "words"
	flagIDDesc       = "product identifier"
	flagNameDesc     = "product name"
	flagPriceDesc    = "product price"
	flagCategoryDesc = "product category"
	flagImageDesc    = "image URL or local path"
	flagInfoDesc     = "additional product information"
	flagFileDesc     = "JSON file with an array of products (built-in samples when empty)"
	flagDetailedDesc = "use the detailed copywriter prompt with SEO keywords"
	flagWordsDesc    = "target description length for --detailed"
	defaultProductID = "1"
	currencySymbol   = "$"
)

func newListingCmd(state *app) *cobra.Command {
	listingCmd := &cobra.Command{
		Use:   "listing",
		Short: "Generate e-commerce product listings from photos",
	}

	listingCmd.AddCommand(
		newListingGenerateCmd(state),
		newListingBatchCmd(state),
		newListingValidateCmd(),
	)

	return listingCmd
}

// promptFlags selects the prompt used for listing requests.
type promptFlags struct {
	detailed  bool
	wordCount int
}

func (f *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.detailed, flagDetailed, false, flagDetailedDesc)
	cmd.Flags().IntVar(&f.wordCount, flagWords, prompt.DefaultWordCount, flagWordsDesc)
}

// builder returns nil for the default listing prompt.
func (f *promptFlags) builder() listing.PromptBuilder {
	if !f.detailed {
		return nil
	}

	return prompt.DetailedListing(f.wordCount)
}

func newListingGenerateCmd(state *app) *cobra.Command {
	var (
		id      string
		item    product.Product
		prompts promptFlags
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the listing for one product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			item.ID = parseProductID(id)

			generator, err := state.listingGenerator(cmd.OutOrStdout(), prompts.builder())
			if err != nil {
				return err
			}

			result, err := generator.ProcessSingle(cmd.Context(), item)
			if err != nil {
				return fmt.Errorf("listing for %s failed: %w", item.Name, err)
			}

			printListing(cmd.OutOrStdout(), result)

			return nil
		},
	}

	cmd.Flags().StringVar(&id, flagID, defaultProductID, flagIDDesc)
	cmd.Flags().StringVar(&item.Name, flagName, "", flagNameDesc)
	cmd.Flags().Float64Var(&item.Price, flagPrice, 0, flagPriceDesc)
	cmd.Flags().StringVar(&item.Category, flagCategory, "", flagCategoryDesc)
	cmd.Flags().StringVar(&item.ImagePath, flagImage, "", flagImageDesc)
	cmd.Flags().StringVar(&item.AdditionalInfo, flagInfo, "", flagInfoDesc)
	prompts.register(cmd)

	_ = cmd.MarkFlagRequired(flagName)
	_ = cmd.MarkFlagRequired(flagImage)

	return cmd
}

func newListingBatchCmd(state *app) *cobra.Command {
	var (
		productsFile string
		prompts      promptFlags
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate listings for every product in a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			products := product.Samples()

			if productsFile != "" {
				loaded, loadErr := product.LoadFile(productsFile)
				if loadErr != nil {
					return loadErr
				}

				products = loaded
			}

			generator, err := state.listingGenerator(out, prompts.builder())
			if err != nil {
				return err
			}

			result, err := generator.ProcessBatch(cmd.Context(), products)
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			printSummary(out, result)

			return nil
		},
	}

	cmd.Flags().StringVar(&productsFile, flagFile, "", flagFileDesc)
	prompts.register(cmd)

	return cmd
}

func newListingValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <products.json>",
		Short: "Validate a products file without calling the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := product.LoadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			for _, item := range products {
				_, _ = fmt.Fprintf(out, "  %s  %s  %s\n",
					item.ID, item.Name, helpers.FormatPrice(item.Price, currencySymbol))
			}

			_, _ = fmt.Fprintf(out, "%d products valid\n", len(products))

			return nil
		},
	}
}

func (a *app) listingGenerator(out io.Writer, buildPrompt listing.PromptBuilder) (*listing.Generator, error) {
	apiClient, err := a.openAIClient(out)
	if err != nil {
		return nil, err
	}

	listingCfg := a.cfg.Listing

	files, err := listing.NewFileManager(listingCfg.OutputDir)
	if err != nil {
		return nil, err
	}

	vision := listing.NewVisionClient(apiClient, listing.VisionSettings{
		Model:       listingCfg.Model,
		Detail:      listingCfg.ImageDetail,
		MaxTokens:   listingCfg.MaxTokens,
		Temperature: listingCfg.SamplingTemperature(),
	})

	images := imaging.NewEncoder(imaging.Options{
		MaxSize: listingCfg.MaxImageSize,
		Quality: listingCfg.ImageQuality,
		Timeout: listingCfg.ImageFetchTimeout(),
	})

	return listing.NewGenerator(vision, images, files, listing.GeneratorOptions{
		Out:              out,
		Prompt:           buildPrompt,
		Model:            listingCfg.Model,
		BatchDelay:       listingCfg.BatchDelay(),
		SaveRawResponses: listingCfg.SaveRawResponses,
	}, a.log), nil
}

func parseProductID(raw string) product.ID {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return product.StringID(raw)
	}

	return product.NumericID(n)
}

func printListing(out io.Writer, result *listing.ProductListing) {
	_, _ = fmt.Fprintf(out, "\nTitle: %s\n", result.Title)
	_, _ = fmt.Fprintf(out, "Description: %s\n", helpers.CleanText(result.Description))

	for _, feature := range result.Features {
		_, _ = fmt.Fprintf(out, "  - %s\n", feature)
	}

	_, _ = fmt.Fprintf(out, "Keywords: %s\n", result.Keywords)
	_, _ = fmt.Fprintf(out, "Tokens used: %d\n", result.TokensUsed)
}

func printSummary(out io.Writer, result *listing.BatchResult) {
	summary := result.Summary

	_, _ = fmt.Fprintf(out, "\nBatch complete: %d/%d successful (%s)\n",
		summary.Successful, summary.TotalProducts, summary.SuccessRate)
	_, _ = fmt.Fprintf(out, "Total tokens: %d, estimated cost: $%.4f\n",
		summary.TotalTokens, summary.EstimatedCostUSD)

	for _, failed := range result.Failed {
		_, _ = fmt.Fprintf(out, "  Failed %s (%s): %s\n", failed.ID, failed.Name, failed.Error)
	}

	_, _ = fmt.Fprintf(out, "Summary: %s\n", result.SummaryPath)
}
