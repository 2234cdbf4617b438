package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/watcher"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage uploaded documents",
	Long:  `Upload, list, view, delete or watch documents.`,
}

var documentUploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload and index documents",
	Long: `Extracts text from each file, splits it into chunks, embeds the chunks and
indexes them. Supported formats: PDF, DOCX, plain text, markdown and HTML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentUpload,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload files as they appear in a directory",
	Long: `Watches a directory and uploads new or modified files once they stop
changing. Hidden files and subdirectories are ignored. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentWatch,
}

var (
	uploadMIMEType string

	listQuery string
	listPage  int
	listLimit int

	getContent bool

	watchInitial  bool
	watchDebounce time.Duration
)

func init() {
	documentUploadCmd.Flags().StringVarP(&uploadMIMEType, "type", "t", "", "content type (detected from the extension when empty)")

	documentListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "filter by filename or content")
	documentListCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page number")
	documentListCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "documents per page")

	documentGetCmd.Flags().BoolVarP(&getContent, "content", "c", false, "print the extracted text")

	documentWatchCmd.Flags().BoolVar(&watchInitial, "initial", false, "upload files already in the directory")
	documentWatchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet time before a file is uploaded")

	documentCmd.AddCommand(documentUploadCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentWatchCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentUpload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	for _, path := range args {
		doc, err := uploadFile(cmd, path)
		if err != nil {
			return failed("upload "+filepath.Base(path), err)
		}
		cmd.Printf("Uploaded %s as %s\n", doc.Filename, doc.ID)
	}
	return nil
}

func uploadFile(cmd *cobra.Command, path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > domain.MaxUploadSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, domain.MaxUploadSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return documentService.Ingest(cmd.Context(), driving.IngestRequest{
		OwnerID:  userID,
		Filename: filepath.Base(path),
		MIMEType: uploadMIMEType,
		Data:     data,
	})
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	page, err := documentService.List(cmd.Context(), userID, driving.ListOptions{
		Query: listQuery,
		Page:  listPage,
		Limit: listLimit,
	})
	if err != nil {
		return failed("list documents", err)
	}

	if len(page.Documents) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for i := range page.Documents {
		doc := &page.Documents[i]
		cmd.Printf("  %s\n", doc.ID)
		cmd.Printf("    File:     %s\n", doc.Filename)
		if t := doc.Metadata[domain.MetaFileType]; t != "" {
			cmd.Printf("    Type:     %s\n", t)
		}
		cmd.Printf("    Created:  %s\n", doc.CreatedAt.Local().Format(timeLayout))
		cmd.Println()
	}

	cmd.Printf("Page %d of %d (%d documents)\n", page.Page, page.Pages, page.Total)
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	details, err := documentService.GetDetails(cmd.Context(), userID, args[0])
	if err != nil {
		return failed("get document", err)
	}
	doc := details.Document

	if getContent {
		cmd.Println(doc.Content)
		return nil
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Chunks:   %d\n", details.ChunkCount)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Local().Format(timeLayout))

	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, doc.Metadata[k])
		}
	}

	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	if err := documentService.Delete(cmd.Context(), userID, args[0]); err != nil {
		return failed("delete document", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runDocumentWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	w := watcher.New(args[0], userID, documentService,
		watcher.WithDebounce(watchDebounce),
		watcher.WithInitialScan(watchInitial),
	)
	defer w.Close() //nolint:errcheck // closed again by the loop on cancel

	events, err := w.Watch(cmd.Context())
	if err != nil {
		return failed("watch "+args[0], err)
	}

	cmd.Printf("Watching %s (ctrl+c to stop)\n", args[0])
	for ev := range events {
		name := filepath.Base(ev.Path)
		if ev.Err != nil {
			cmd.Printf("  %s: %s\n", name, domain.Categorise(ev.Err).Message)
			continue
		}
		cmd.Printf("  %s: uploaded as %s\n", name, ev.Document.ID)
	}
	return nil
}
