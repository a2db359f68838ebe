// Package queryloomctl implements the CLI against the HTTP API. The
// command tree is built from Options so tests can point it at an
// httptest server and capture output.
package queryloomctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	root := NewRootCommand(defaults)
	root.SetArgs(args)
	if defaults.Stdout != nil {
		root.SetOut(defaults.Stdout)
	}
	if defaults.Stderr != nil {
		root.SetErr(defaults.Stderr)
	}
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func NewRootCommand(defaults Options) *cobra.Command {
	client := &apiClient{options: defaults}

	root := &cobra.Command{
		Use:           "queryloomctl",
		Short:         "Ask questions and run queries against a queryloom API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&client.options.BaseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "queryloom API base URL")
	root.PersistentFlags().StringVar(&client.options.APIKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	root.PersistentFlags().DurationVar(&client.options.Timeout, "timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout")

	root.AddCommand(
		newAskCommand(client),
		newSQLCommand(client),
		newTranslateCommand(client),
		newExplainCommand(client),
		newSchemaCommand(client),
		newPreviewCommand(client),
		newStatsCommand(client),
		newHealthCommand(client),
	)
	return root
}

func newAskCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a natural-language question and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"question": strings.Join(args, " ")}
			return client.call(cmd, http.MethodPost, "/v1/ask", payload)
		},
	}
}

func newSQLCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <statement>",
		Short: "Run a read-only SQL statement through the safety gate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"sql": strings.Join(args, " ")}
			return client.call(cmd, http.MethodPost, "/v1/query", payload)
		},
	}
}

func newTranslateCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <question>",
		Short: "Show the SQL a question synthesizes to (requires query_admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"question": strings.Join(args, " ")}
			return client.call(cmd, http.MethodPost, "/v1/query/translate", payload)
		},
	}
}

func newExplainCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <question>",
		Short: "Describe what a question would query, without executing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"question": strings.Join(args, " ")}
			return client.call(cmd, http.MethodPost, "/v1/explain", payload)
		},
	}
}

func newSchemaCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print tables, columns and detected relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.call(cmd, http.MethodGet, "/v1/schema", nil)
		},
	}
}

func newPreviewCommand(client *apiClient) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <table>",
		Short: "Print the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/tables/" + url.PathEscape(args[0]) + "/preview"
			if limit > 0 {
				path += fmt.Sprintf("?limit=%d", limit)
			}
			return client.call(cmd, http.MethodGet, path, nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return")
	return cmd
}

func newStatsCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <table>",
		Short: "Print row and column counts for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.call(cmd, http.MethodGet, "/v1/tables/"+url.PathEscape(args[0])+"/stats", nil)
		},
	}
}

func newHealthCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.call(cmd, http.MethodGet, "/v1/health", nil)
		},
	}
}

type apiClient struct {
	options Options
}

func (c *apiClient) call(cmd *cobra.Command, method, path string, payload any) error {
	httpClient := c.options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: durationOr(c.options.Timeout, 10*time.Second)}
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	target := strings.TrimRight(c.options.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(cmd.Context(), method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.options.APIKey != "" {
		req.Header.Set("X-API-Key", c.options.APIKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	pretty := prettyJSON(raw)
	if resp.StatusCode >= 400 {
		fmt.Fprintln(cmd.ErrOrStderr(), pretty)
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty)
	return nil
}

func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
