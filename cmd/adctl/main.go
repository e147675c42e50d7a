package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/service"
	"github.com/atharvad999/adcreative/internal/storage"
	"github.com/atharvad999/adcreative/pkg/zip"
)

// backend is the subset of the service the CLI drives.
type backend interface {
	Browse(ctx context.Context, req service.BrowseRequest) ([]domain.ImageDescriptor, error)
	Inspiration(ctx context.Context, category string, limit int, locale, country string) ([]domain.ImageDescriptor, error)
	ReconstructPrompt(ctx context.Context, req service.ReconstructRequest) (domain.ReconstructedPrompt, error)
	Generate(ctx context.Context, req domain.GenerationRequest) (service.GenerateResult, error)
}

type backendFactory func(cfg *infra.Config, logger *infra.Logger) (backend, error)

func defaultFactory(cfg *infra.Config, logger *infra.Logger) (backend, error) {
	return service.FromConfig(cfg, logger, nil)
}

type cli struct {
	factory backendFactory
	envFile string
	verbose bool

	svc backend
}

func main() {
	if err := newRootCmd(defaultFactory).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(factory backendFactory) *cobra.Command {
	c := &cli{factory: factory}
	root := &cobra.Command{
		Use:   "adctl",
		Short: "Drive the ad creative backend from a terminal",
		Long: `adctl calls the same stock search, prompt reconstruction and image
generation code as the HTTP API, using credentials from the environment
or a .env file.

Examples:
  adctl check
  adctl search "coffee shop" --per-page 5
  adctl reconstruct https://example.com/ad.jpg --ad-text "Grand opening"
  adctl generate --prompt "minimal sneaker ad" --count 2 --out creatives.zip`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Optional dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log upstream calls to stderr")

	root.AddCommand(c.checkCmd(), c.searchCmd(), c.inspirationCmd(), c.reconstructCmd(), c.generateCmd())
	return root
}

// connect loads configuration and builds the backend once per invocation.
func (c *cli) connect(cmd *cobra.Command) error {
	if c.svc != nil {
		return nil
	}
	if c.envFile != "" {
		if _, err := os.Stat(c.envFile); err == nil {
			if err := godotenv.Load(c.envFile); err != nil {
				return fmt.Errorf("load %s: %w", c.envFile, err)
			}
		}
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
	svc, err := c.factory(cfg, &logger)
	if err != nil {
		return err
	}
	c.svc = svc
	return nil
}

func (c *cli) checkCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and optionally call Shutterstock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.connect(cmd); err != nil {
				return err
			}
			if live {
				if _, err := c.svc.Browse(cmd.Context(), service.BrowseRequest{Query: "test", Page: 1, PerPage: 1}); err != nil {
					return fmt.Errorf("test search: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "Run a one-result search to verify the Shutterstock key")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	req := service.BrowseRequest{}
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search stock images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.connect(cmd); err != nil {
				return err
			}
			req.Query = args[0]
			images, err := c.svc.Browse(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), images)
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 1, "Result page (1-based)")
	cmd.Flags().IntVar(&req.PerPage, "per-page", 20, "Results per page (1-100)")
	cmd.Flags().StringVar(&req.Sort, "sort", "", "relevance, popular, newest or random")
	cmd.Flags().StringVar(&req.Locale, "locale", "", "Search language as a BCP 47 tag")
	cmd.Flags().StringVar(&req.Country, "country", "", "ISO country code used as the search region")
	return cmd
}

func (c *cli) inspirationCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inspiration CATEGORY",
		Short: "Popular stock images for an ad category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.connect(cmd); err != nil {
				return err
			}
			images, err := c.svc.Inspiration(cmd.Context(), args[0], limit, "", "")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), images)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultInspirationLimit, "Number of images")
	return cmd
}

func (c *cli) reconstructCmd() *cobra.Command {
	var adText string
	cmd := &cobra.Command{
		Use:   "reconstruct IMAGE_URL",
		Short: "Recover a generation prompt from an existing image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.connect(cmd); err != nil {
				return err
			}
			prompt, err := c.svc.ReconstructPrompt(cmd.Context(), service.ReconstructRequest{ImageURL: args[0], AdText: adText})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), prompt)
		},
	}
	cmd.Flags().StringVar(&adText, "ad-text", "", "Ad copy the prompt should account for")
	return cmd
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		req    domain.GenerationRequest
		size   string
		out    string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ad creatives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.connect(cmd); err != nil {
				return err
			}
			req.Size = domain.ImageSize(size)
			result, err := c.svc.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			files := service.ArchiveEntries(result.Assets)
			if outDir != "" {
				store, err := storage.NewDirStore(outDir)
				if err != nil {
					return err
				}
				written, err := store.Export(cmd.Context(), files)
				if err != nil {
					return err
				}
				for _, name := range written {
					fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(store.Root(), name))
				}
				return nil
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := zip.WriteAssets(f, files); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d creatives to %s\n", len(result.Assets), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Prompt, "prompt", "p", "", "Generation prompt")
	cmd.Flags().StringSliceVar(&req.ReferenceImageURLs, "reference", nil, "Reference image URL to edit (repeatable)")
	cmd.Flags().StringVar(&req.MaskImageURL, "mask", "", "Mask image URL for the edit")
	cmd.Flags().StringVar(&req.AdText, "ad-text", "", "Ad copy to render into the creative")
	cmd.Flags().StringVar(&size, "size", string(domain.DefaultImageSize), "small, medium, large or an explicit WxH")
	cmd.Flags().IntVarP(&req.Count, "count", "n", 1, "Number of creatives")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write a zip archive here instead of printing JSON")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write each creative into this directory")
	cmd.MarkFlagsMutuallyExclusive("out", "out-dir")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
