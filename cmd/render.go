// Package cmd — render command.
// Runs the pipeline once for a single post and writes the artifact to disk:
// fetch → normalize → render → write.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/output"
)

// Flag variables.
var (
	flagHTML      bool
	flagSW        bool
	flagManifest  bool
	flagTag       string
	flagHost      string
	flagProtocol  string
	flagOutputDir string
)

var renderCmd = &cobra.Command{
	Use:   "render @author/permlink",
	Short: "Render one artifact for a post to a file",
	Long: `Render fetches a post from the Hive API and writes its preview HTML,
service worker or web app manifest to disk.

Examples:
  dluxgate render @alice/my-post --html
  dluxgate render @alice/my-post --sw --output_dir ./out
  dluxgate render @alice/my-post --manifest --tag hive --host alice.dlux.io`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	// Output format flags (mutually exclusive).
	renderCmd.Flags().BoolVar(&flagHTML, "html", false, "Output the social-preview HTML")
	renderCmd.Flags().BoolVar(&flagSW, "sw", false, "Output the service worker script")
	renderCmd.Flags().BoolVar(&flagManifest, "manifest", false, "Output the web app manifest")

	// Request context used for absolute URLs.
	renderCmd.Flags().StringVar(&flagTag, "tag", "", "Route tag segment, e.g. hive")
	renderCmd.Flags().StringVar(&flagHost, "host", "dlux.io", "Host used in absolute URLs")
	renderCmd.Flags().StringVar(&flagProtocol, "protocol", "https", "Protocol used in absolute URLs")

	renderCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

func runRender(cmd *cobra.Command, args []string) error {
	kind, err := selectKind()
	if err != nil {
		return err
	}
	author, permlink, err := parsePostRef(args[0])
	if err != nil {
		return err
	}
	if flagProtocol != "http" && flagProtocol != "https" {
		return fmt.Errorf("--protocol must be http or https, got %q", flagProtocol)
	}

	_, logger, svc, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	rc := core.RequestContext{Protocol: flagProtocol, Host: flagHost, RouteTag: flagTag}
	art, err := svc.Render(cmd.Context(), kind, author, permlink, rc)
	if err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}

	path, err := writer.Write(author, permlink, art.Body, svc.Extension(kind))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Written: %s\n", path)
	return nil
}

// parsePostRef splits "@author/permlink". The leading "@" is optional.
func parsePostRef(ref string) (author, permlink string, err error) {
	author, permlink, ok := strings.Cut(strings.TrimPrefix(ref, "@"), "/")
	if !ok || author == "" || permlink == "" || strings.Contains(permlink, "/") {
		return "", "", fmt.Errorf("invalid post reference %q (want @author/permlink)", ref)
	}
	return author, permlink, nil
}

// selectKind checks that exactly one output format is chosen.
func selectKind() (core.ArtifactKind, error) {
	var kinds []core.ArtifactKind
	if flagHTML {
		kinds = append(kinds, core.ArtifactHTML)
	}
	if flagSW {
		kinds = append(kinds, core.ArtifactServiceWorker)
	}
	if flagManifest {
		kinds = append(kinds, core.ArtifactManifest)
	}

	switch len(kinds) {
	case 0:
		return "", fmt.Errorf("exactly one output format is required: --html, --sw, or --manifest")
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("only one output format allowed per run (got %d)", len(kinds))
	}
}
