package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var uploadIndexID string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload local documents to the remote store",
	Long: `Upload reads local .pdf, .md or .txt files and stores them remotely.
With --index the uploaded files are also attached to an existing index
through a new indexing batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadIndexID, "index", "", "index to attach the uploaded files to")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		file, err := sess.Upload(ctx, data, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("upload of %s failed: %w", path, err)
		}
		fmt.Printf("uploaded %s  id=%s  size=%d bytes\n", file.DisplayName, file.RemoteID, file.ByteSize)
	}

	if uploadIndexID == "" {
		return nil
	}

	fileIDs, err := sess.UploadedFileIDs()
	if err != nil {
		return err
	}
	b, err := sess.AddFiles(ctx, uploadIndexID, fileIDs)
	if err != nil {
		return fmt.Errorf("attaching files to index %s failed: %w", uploadIndexID, err)
	}
	fmt.Printf("indexing batch %s enqueued on %s (%d files)\n", b.ID, uploadIndexID, b.FileCounts.Total)
	fmt.Printf("track progress with: kbctl batch poll %s %s --wait\n", uploadIndexID, b.ID)
	return nil
}
