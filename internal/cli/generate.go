package cli

import (
	"bytes"
	"os"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/generate"
	"github.com/arthur-debert/dotup/pkg/paths"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: MsgGenerateShort,
	}
	cmd.AddCommand(newGenerateGitCmd(a))
	return cmd
}

func newGenerateGitCmd(a *app) *cobra.Command {
	var (
		search  []string
		exclude []string
		out     string
	)

	cmd := &cobra.Command{
		Use:     "git",
		Short:   MsgGenerateGitShort,
		Example: MsgGenerateGitExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					a.exitCode = 1
				}
			}()

			home, _ := paths.HomeDir()
			if len(search) == 0 {
				search = []string{"~"}
			}

			doc, err := generate.Discover(cmd.Context(), generate.Options{
				Search:  search,
				Exclude: exclude,
				Home:    home,
			})
			if err != nil {
				return err
			}

			if out == "" {
				return generate.Write(cmd.OutOrStdout(), doc)
			}
			var buf bytes.Buffer
			if err := generate.Write(&buf, doc); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileCreate, "cannot write %s", out)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&search, "search", "s", nil, MsgFlagSearch)
	cmd.Flags().StringArrayVarP(&exclude, "exclude", "x", []string{"node_modules", "vendor", ".cache"}, MsgFlagExclude)
	cmd.Flags().StringVarP(&out, "out", "o", "", MsgFlagOut)
	return cmd
}
