package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/blocks"
	"github.com/jackzampolin/tablescan/internal/output"
)

var (
	blocksFile    string
	blocksStats   bool
	blocksType    string
	blocksRefresh bool
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [job-id]",
	Short: "Describe the analysis blocks of a job or a saved response",
	Long: `Print a human description of every analysis block, or counts per block
type with --stats.

Examples:
  tablescan blocks 4f1c...e2 --stats
  tablescan blocks --file response.json --type CELL`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (blocksFile != "") {
			return fmt.Errorf("give either a job id or --file")
		}

		var bs []blocks.Block
		if blocksFile != "" {
			var err error
			if bs, err = blocks.LoadFile(blocksFile); err != nil {
				return err
			}
		} else {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			r, tr, err := a.runner(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer tr.Close()
			if bs, err = r.Blocks(cmd.Context(), args[0], blocksRefresh); err != nil {
				return err
			}
		}

		if blocksStats {
			return output.Print(blocks.Stats(bs))
		}
		w := cmd.OutOrStdout()
		for _, b := range bs {
			if blocksType != "" && !strings.EqualFold(string(b.Type), blocksType) {
				continue
			}
			blocks.Describe(w, b)
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	blocksCmd.Flags().StringVar(&blocksFile, "file", "", "saved Textract response or block array")
	blocksCmd.Flags().BoolVar(&blocksStats, "stats", false, "print block counts per type")
	blocksCmd.Flags().StringVar(&blocksType, "type", "", "only describe blocks of this type, e.g. TABLE or CELL")
	blocksCmd.Flags().BoolVar(&blocksRefresh, "refresh", false, "fetch blocks again instead of using the cache")

	rootCmd.AddCommand(blocksCmd)
}
