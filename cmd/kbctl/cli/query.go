package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryTopK  int
	queryModel string
)

var queryCmd = &cobra.Command{
	Use:   "query <index-id> <question>",
	Short: "Ask a question against an index",
	Long: `Query searches the index for relevant document chunks and asks the
completion model to answer from them. The answer lists the source files
that contributed.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of chunks to retrieve (0 = default)")
	queryCmd.Flags().StringVar(&queryModel, "model", "", "completion model (empty = default)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	indexID := args[0]
	question := strings.Join(args[1:], " ")

	result, err := sess.Query(ctx, indexID, question, queryModel, queryTopK)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Printf("\nsources: %s\n", strings.Join(result.Sources, ", "))
	}
	return nil
}
