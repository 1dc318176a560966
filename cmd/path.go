package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Encode, decode and increment path segments with the configured codec",
}

var pathEncodeCmd = &cobra.Command{
	Use:   "encode <n>",
	Short: "Print the padded segment for step n",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid step %q: %w", args[0], err)
		}
		seg, err := codec.Pad(n)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), seg)
		return nil
	},
}

var pathDecodeCmd = &cobra.Command{
	Use:   "decode <path>",
	Short: "Print the step of every segment of path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := codec.ValidatePath(path); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for i, seg := range codec.Segments(path) {
			n, err := codec.Decode(seg)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  %s  %d\n", i+1, seg, n)
		}
		return nil
	},
}

var pathNextCmd = &cobra.Command{
	Use:   "next <path>",
	Short: "Print the path of the next sibling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		next, err := codec.Increment(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), next)
		return nil
	},
}

func init() {
	pathCmd.AddCommand(pathEncodeCmd, pathDecodeCmd, pathNextCmd)
	rootCmd.AddCommand(pathCmd)
}
