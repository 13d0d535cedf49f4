package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovehq/grove/internal/store"
)

var (
	bucketDescription string
	bucketColor       string
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Manage knowledge buckets",
}

var bucketsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runBucketsCreate,
}

var bucketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets",
	Args:  cobra.NoArgs,
	RunE:  runBucketsList,
}

var bucketsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a bucket and every document in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runBucketsDelete,
}

func init() {
	bucketsCreateCmd.Flags().StringVar(&bucketDescription, "description", "", "bucket description")
	bucketsCreateCmd.Flags().StringVar(&bucketColor, "color", "", "display color (default "+store.DefaultBucketColor+")")

	bucketsCmd.AddCommand(bucketsCreateCmd, bucketsListCmd, bucketsDeleteCmd)
	rootCmd.AddCommand(bucketsCmd)
}

func runBucketsCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, cleanup, err := newStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bucket, err := st.store.CreateBucket(ctx, store.CreateBucketParams{
		Name:        args[0],
		Description: bucketDescription,
		Color:       bucketColor,
	})
	if err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}

	fmt.Printf("Created bucket %q\n", bucket.Name)
	fmt.Printf("  ID:    %s\n", bucket.ID)
	fmt.Printf("  Color: %s\n", bucket.Color)
	return nil
}

func runBucketsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, cleanup, err := newStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	buckets, err := st.store.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("listing buckets: %w", err)
	}
	if len(buckets) == 0 {
		fmt.Println("No buckets yet. Create one with: grove buckets create <name>")
		return nil
	}

	for _, b := range buckets {
		fmt.Printf("%s  %s", b.ID, b.Name)
		if b.Description != "" {
			fmt.Printf("  (%s)", b.Description)
		}
		fmt.Println()
	}
	return nil
}

func runBucketsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, cleanup, err := newStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.store.DeleteBucket(ctx, args[0]); err != nil {
		return fmt.Errorf("deleting bucket: %w", err)
	}
	fmt.Printf("Deleted bucket %s\n", args[0])
	return nil
}
