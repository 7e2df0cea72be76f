package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	createWait  bool
	createReuse string
	rmFilePurge bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage knowledge base indexes",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create <name> [file...]",
	Short: "Create an index, optionally seeding it with local documents",
	Long: `Create provisions a new index and uploads any given local documents into
it. With --reuse the named index is reused if it still exists and a new
one is created only as a fallback.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexCreate,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexes",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status <index-id>",
	Short: "Show the lifecycle state and file counts of an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexStatus,
}

var indexFilesCmd = &cobra.Command{
	Use:   "files <index-id>",
	Short: "List the files attached to an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexFiles,
}

var indexRmFileCmd = &cobra.Command{
	Use:   "rm-file <index-id> <file-id>",
	Short: "Detach a file from an index",
	Long: `Detach a file from an index. By default the remote file object itself is
kept and can be attached to other indexes; --purge deletes it too.
Removing a file that is already gone succeeds.`,
	Args: cobra.ExactArgs(2),
	RunE: runIndexRmFile,
}

var indexCatCmd = &cobra.Command{
	Use:   "cat <index-id> <file-id>",
	Short: "Print the indexed text of a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexCat,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete <index-id>",
	Short: "Delete an index and its file associations",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDelete,
}

func init() {
	indexCreateCmd.Flags().BoolVar(&createWait, "wait", false, "wait for the initial indexing batch to finish")
	indexCreateCmd.Flags().StringVar(&createReuse, "reuse", "", "reuse this index if it still exists")
	indexRmFileCmd.Flags().BoolVar(&rmFilePurge, "purge", false, "also delete the underlying file object")
	indexCmd.AddCommand(indexCreateCmd, indexListCmd, indexStatusCmd, indexFilesCmd, indexRmFileCmd, indexCatCmd, indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, cfg, err := newSession(ctx)
	if err != nil {
		return err
	}

	name := args[0]
	for _, path := range args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		file, err := sess.Upload(ctx, data, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("upload of %s failed: %w", path, err)
		}
		fmt.Printf("uploaded %s  id=%s\n", file.DisplayName, file.RemoteID)
	}

	fileIDs, err := sess.UploadedFileIDs()
	if err != nil {
		return err
	}

	vs, b, err := sess.GetOrCreateIndex(ctx, name, createReuse, fileIDs)
	if err != nil {
		return err
	}
	fmt.Printf("index %q ready  id=%s  status=%s\n", vs.Name, vs.ID, vs.Status)

	if b == nil {
		return nil
	}
	fmt.Printf("indexing batch %s enqueued (%d files)\n", b.ID, b.FileCounts.Total)

	if !createWait {
		fmt.Printf("track progress with: kbctl batch poll %s %s --wait\n", vs.ID, b.ID)
		return nil
	}
	final, err := waitForBatch(ctx, sess, cfg, vs.ID, b.ID)
	if err != nil {
		return err
	}
	printBatch(final)
	return nil
}

func runIndexList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	stores, err := sess.ListIndexes(ctx)
	if err != nil {
		return err
	}
	if len(stores) == 0 {
		fmt.Println("no indexes")
		return nil
	}
	for _, vs := range stores {
		fmt.Printf("%s  %-20s  status=%-8s  files=%d\n", vs.ID, vs.Name, vs.Status, vs.FileCounts.Total)
	}
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	vs, err := sess.GetIndex(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("index:  %s (%s)\n", vs.Name, vs.ID)
	fmt.Printf("status: %s\n", vs.Status)
	fmt.Printf("files:  %d total / %d completed / %d in progress / %d failed / %d cancelled\n",
		vs.FileCounts.Total, vs.FileCounts.Completed, vs.FileCounts.InProgress,
		vs.FileCounts.Failed, vs.FileCounts.Cancelled)
	return nil
}

func runIndexFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	files, err := sess.ListIndexFiles(ctx, args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("no files attached")
		return nil
	}
	for _, f := range files {
		name := f.DisplayName
		if name == "" {
			name = "(unknown)"
		}
		fmt.Printf("%s  %-30s  status=%-10s  size=%d bytes\n", f.RemoteID, name, f.Status, f.ByteSize)
	}
	return nil
}

func runIndexRmFile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	remove := sess.RemoveIndexFile
	if rmFilePurge {
		remove = sess.PurgeIndexFile
	}
	counts, err := remove(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("file %s removed from %s  remaining=%d\n", args[1], args[0], counts.Total)
	return nil
}

func runIndexCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	fc, err := sess.GetFileContent(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if !fc.Retrievable {
		fmt.Println(fc.Message)
		return nil
	}
	fmt.Print(fc.Content)
	return nil
}

func runIndexDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	if err := sess.DeleteIndex(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("index %s deleted\n", args[0])
	return nil
}
