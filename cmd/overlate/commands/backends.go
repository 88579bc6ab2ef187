package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List available OCR and translation backends",
	RunE:  runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "KIND\tNAME\tREQUIRES")
	fmt.Fprintln(w, "----\t----\t--------")
	fmt.Fprintln(w, "ocr\ttesseract\tlibtesseract with the configured language data")
	fmt.Fprintln(w, "ocr\thttp\tocr.endpoint pointing at a model server")
	fmt.Fprintln(w, "translate\tdeepl\ttranslate.deepl_auth_key")
	fmt.Fprintln(w, "translate\tgoogle\tGOOGLE_APPLICATION_CREDENTIALS")
	fmt.Fprintln(w, "translate\thttp\ttranslate.endpoint pointing at a model server")
	return nil
}
