package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/output"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect document profiles",
	Long: `Document profiles define the canonical transaction fields, their header
synonyms and the keywords that mark a summary table. The bank_statement
profile is built in; more come from the config's profiles and profile_files.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profile names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return output.Print(a.profiles.Names())
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		spec, err := a.profiles.Spec(args[0])
		if err != nil {
			return err
		}
		return output.Print(spec)
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	rootCmd.AddCommand(profilesCmd)
}
