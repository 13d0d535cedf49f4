package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage documents in a bucket",
}

var documentsListCmd = &cobra.Command{
	Use:   "list [bucket-id]",
	Short: "List documents in a bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [bucket-id] [file-name]",
	Short: "Delete a document and all of its chunks",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, cleanup, err := newStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := st.store.ListDocuments(ctx, args[0])
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No documents in this bucket.")
		return nil
	}

	for _, d := range docs {
		fmt.Printf("%s  %d chunks  %d bytes  %s\n",
			d.FileName, d.ChunkCount, d.FileSize, d.UploadedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, cleanup, err := newStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.store.DeleteDocument(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	fmt.Printf("Deleted %s from bucket %s\n", args[1], args[0])
	return nil
}
