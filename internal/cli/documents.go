package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docarchive/internal/model"
)

var insertCmd = &cobra.Command{
	Use:   "insert <collection> [documents-json]",
	Short: "Insert documents into a collection",
	Long: `Inserts a JSON object or array of objects. Without a second argument, or
with "-", the documents are read from stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInsert,
}

var findCmd = &cobra.Command{
	Use:   "find <collection> [selector-json]",
	Short: "Print documents matching a selector",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFind,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <collection> <selector-json>",
	Short: "Delete documents, archiving them unless excluded",
	Long: `Deletes the documents matching the selector. When delete interception is
on and the collection is not excluded, the documents are archived instead.
Pass --permanent to skip archiving.`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <collection> <selector-json>",
	Short: "Move matching documents into the archive collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runArchive,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <collection> [selector-json]",
	Short: "Move archived documents back to their collection",
	Long: `Restores archive entries that came from the collection and match the
selector. The selector applies to the archived documents, so originalId
and archivedAt may be used. Without a selector everything archived from the
collection is restored.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRestore,
}

var permanentDelete bool

func init() {
	deleteCmd.Flags().BoolVar(&permanentDelete, "permanent", false, "Delete without archiving")

	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runInsert(cmd *cobra.Command, args []string) error {
	raw := "-"
	if len(args) == 2 {
		raw = args[1]
	}
	if raw == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = string(data)
	}

	docs, err := parseDocuments(raw)
	if err != nil {
		return err
	}

	resp, err := collectionService.Insert(context.Background(), cliActor, args[0], docs)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	cmd.Printf("Inserted %d document(s) into %s\n", len(resp.IDs), resp.Collection)
	for _, id := range resp.IDs {
		cmd.Printf("  %s\n", id)
	}
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	sel, err := selectorArg(args, 1)
	if err != nil {
		return err
	}

	resp, err := collectionService.Find(context.Background(), args[0], sel)
	if err != nil {
		return fmt.Errorf("failed to find: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Documents)
}

func runDelete(cmd *cobra.Command, args []string) error {
	sel, err := selectorArg(args, 1)
	if err != nil {
		return err
	}

	result, err := collectionService.Delete(context.Background(), cliActor, args[0], sel, permanentDelete)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	if result.Archived {
		cmd.Printf("Archived %d document(s) from %s\n", result.Count, args[0])
	} else {
		cmd.Printf("Deleted %d document(s) from %s\n", result.Count, args[0])
	}
	return nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	sel, err := selectorArg(args, 1)
	if err != nil {
		return err
	}

	resp, err := collectionService.Archive(context.Background(), cliActor, args[0], sel)
	if err != nil {
		return fmt.Errorf("failed to archive: %w", err)
	}

	cmd.Printf("Archived %d document(s) from %s\n", resp.Count, resp.Collection)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	sel, err := selectorArg(args, 1)
	if err != nil {
		return err
	}

	resp, err := collectionService.Restore(context.Background(), cliActor, args[0], sel)
	if err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}

	cmd.Printf("Restored %d document(s) to %s\n", resp.Count, resp.Collection)
	return nil
}

// selectorArg parses args[i] as a JSON selector. A missing argument is the
// empty selector.
func selectorArg(args []string, i int) (model.Selector, error) {
	sel := model.Selector{}
	if len(args) <= i {
		return sel, nil
	}
	if err := json.Unmarshal([]byte(args[i]), &sel); err != nil {
		return nil, fmt.Errorf("%w: selector must be a JSON object: %v", model.ErrInvalidSelector, err)
	}
	if sel == nil {
		sel = model.Selector{}
	}
	return sel, nil
}

// parseDocuments accepts a single JSON object or an array of objects.
func parseDocuments(raw string) ([]model.Document, error) {
	raw = strings.TrimSpace(raw)
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	if strings.HasPrefix(raw, "{") {
		var doc model.Document
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidDocument, err)
		}
		return []model.Document{doc}, nil
	}

	var docs []model.Document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON object or array of objects: %v", model.ErrInvalidDocument, err)
	}
	return docs, nil
}
