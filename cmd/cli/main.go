package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fraud-viewer/internal/client/analyzer"
	"fraud-viewer/internal/config"
	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/export/xlsx"
	"fraud-viewer/internal/usecase"
	"fraud-viewer/internal/usecase/preview"
	"fraud-viewer/internal/usecase/render"
	"fraud-viewer/internal/usecase/submission"
	"fraud-viewer/internal/view/terminal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	_ = godotenv.Load()
	zlog.Init()

	rootCmd := &cobra.Command{
		Use:           "fraud-viewer",
		Short:         "Submit claim files to the fraud analysis service from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newSubmitCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type submitOptions struct {
	files    []string
	fields   []string
	upstream string
	mode     string
	policy   string
	xlsxPath string
}

func newSubmitCmd() *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run one analysis and print charts and the predictions preview",
		Long: `Send the claim files to the analysis service and print the outcome.

Every --file is forwarded as a multipart file part under its field name, every --field
as a text field. The upstream URL and rendering options default to the service config.

Example:
  fraud-viewer submit --file trainBeneficiary=Train_Beneficiary.csv \
    --file trainInpatient=Train_Inpatient.csv --mode inline --xlsx preview.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.files, "file", nil, "File part as field=path (repeatable)")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Text field as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "", "Analysis service base URL (overrides UPSTREAM_BASE_URL)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Chart mode: auto|inline|image")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Positive cell policy: keywords|exact")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Also export the preview table to this .xlsx file")

	return cmd
}

func runSubmit(ctx context.Context, out io.Writer, opts submitOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	payload, err := payloadFromFlags(opts.files, opts.fields)
	if err != nil {
		return err
	}

	logger := &zlog.Logger

	client, err := analyzer.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create analysis client: %w", err)
	}

	previewer := preview.NewPreviewer(client, cfg.MatchPolicy(), logger)
	renderer, err := render.NewRenderer(cfg.ChartMode(), cfg.PublicURL(), previewer, usecase.SystemClock{}, logger)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	handler := submission.NewHandler(client, renderer, nil, nil, usecase.SystemClock{}, logger)
	view := terminal.New(out)

	if _, err := handler.NewSession("cli").Submit(ctx, view, payload); err != nil {
		return errors.New(submission.UserMessage(err))
	}

	if opts.xlsxPath == "" {
		return nil
	}

	table := view.Table()
	if table == nil {
		return fmt.Errorf("no preview table to export")
	}

	return exportTable(opts.xlsxPath, *table)
}

func loadConfig(opts submitOptions) (*config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}

	if opts.upstream != "" {
		cfg.Upstream.BaseURL = opts.upstream
	}
	if opts.mode != "" {
		cfg.Render.ChartMode = opts.mode
	}
	if opts.policy != "" {
		cfg.Render.MatchPolicy = opts.policy
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func payloadFromFlags(files, fields []string) (*domain.Payload, error) {
	payload := &domain.Payload{}

	for _, raw := range fields {
		name, value, err := splitPair(raw, "--field")
		if err != nil {
			return nil, err
		}
		payload.Fields = append(payload.Fields, domain.FormField{Name: name, Value: value})
	}

	for _, raw := range files {
		field, path, err := splitPair(raw, "--file")
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}

		payload.Files = append(payload.Files, domain.FilePart{
			Field:       field,
			Filename:    filepath.Base(path),
			ContentType: "text/csv",
			Open: func() (io.ReadCloser, error) {
				f, err := os.Open(path)
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}

	return payload, nil
}

func splitPair(raw, flag string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid %s %q: expected key=value", flag, raw)
	}
	return strings.TrimSpace(key), value, nil
}

func exportTable(path string, table domain.PreviewTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := xlsx.Write(f, table); err != nil {
		f.Close()
		return fmt.Errorf("failed to export preview: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
