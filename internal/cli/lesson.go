package cli

import (
	"fmt"

	"edu-arena/internal/content"
	"github.com/spf13/cobra"
)

// NewLessonCmd normalizes AI generated lesson content into block JSON.
func NewLessonCmd() *cobra.Command {
	var file, search string
	cmd := &cobra.Command{
		Use:   "normalize-lesson",
		Short: "Normalize AI generated lesson content",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			lesson, err := content.ParseLesson(raw)
			if err != nil {
				return err
			}
			if search != "" {
				if !lesson.IsList() {
					return fmt.Errorf("lesson kind %s has no blocks to search", lesson.Kind)
				}
				lesson.Blocks = lesson.Search(search)
			}
			out, err := lesson.Encode()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "file with the AI output, - for stdin")
	cmd.Flags().StringVar(&search, "search", "", "keep only blocks containing this text")
	return cmd
}
