package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("connectivity check failed")

// CheckCmd creates the connectivity check command.
func CheckCmd() *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the embedding model and store credentials",
		Long: `Embeds a fixed sentence and reports the vector dimensionality, then constructs a
client for the configured store and reports STABLE or FAILED. Construction does not contact
the store; pass --probe to also read one row from the knowledge table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runCheck(cmd.Context(), probe, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Also read one row to verify the table and permissions")

	return cmd
}

func runCheck(ctx context.Context, probe, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(appOptions{console: !outputJSON})
	if err != nil {
		return err
	}
	defer a.Close()

	embedder, model, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}
	if !outputJSON {
		fmt.Printf("Initializing embedding model (%s %s)...\n", a.cfg.EmbeddingProvider, model)
	}

	svc := service.NewCheckService(embedder, a.storeConnector(), a.checkOptions(probe), a.logger)
	report := svc.Run(ctx)

	if outputJSON {
		output, _ := json.MarshalIndent(newCheckOutput(report, model), "", "  ")
		fmt.Println(string(output))
	} else {
		printReport(os.Stdout, report)
	}

	if !report.OK() {
		return errCheckFailed
	}
	return nil
}

// checkOutput is the JSON form of a report
type checkOutput struct {
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
	Embedding  string   `json:"embedding"`
	Store      string   `json:"store"`
	Link       string   `json:"link"`
	Probe      string   `json:"probe"`
	Warnings   []string `json:"warnings,omitempty"`
}

func newCheckOutput(r *service.CheckReport, model string) checkOutput {
	out := checkOutput{
		Model:      model,
		Dimensions: r.Dimensions,
		Embedding:  string(service.StatusStable),
		Store:      r.Store,
		Link:       r.LinkLine(),
		Probe:      r.ProbeLine(),
		Warnings:   r.Warnings,
	}
	if r.EmbeddingErr != nil {
		out.Embedding = fmt.Sprintf("%s (%v)", service.StatusFailed, r.EmbeddingErr)
	}
	return out
}

func printReport(w io.Writer, r *service.CheckReport) {
	if r.EmbeddingErr != nil {
		fmt.Fprintf(w, "Vector generation: FAILED (%v)\n", r.EmbeddingErr)
	} else {
		fmt.Fprintf(w, "Vector generated (Dimensions: %d)\n", r.Dimensions)
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	fmt.Fprintf(w, "Cloud Link (%s): %s\n", r.Store, r.LinkLine())
	if r.ProbeStatus != service.StatusSkipped {
		fmt.Fprintf(w, "Table probe: %s\n", r.ProbeLine())
	}
}
