package cmd

import (
	"os"
	"os/user"

	"github.com/dnitsch/objstore-cli/internal/cmdutils"
	"github.com/dnitsch/objstore-cli/internal/credentialexchange"
	"github.com/dnitsch/objstore-cli/internal/util"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clears any stored credentials in the OS secret store",
	RunE:  clearCache,
}

func init() {
	RootCmd.AddCommand(clearCmd)
}

func clearCache(cmd *cobra.Command, args []string) error {
	user, err := user.Current()
	if err != nil {
		return err
	}
	secretStore, err := credentialexchange.NewSecretStore("", os.TempDir(), user.Username)
	if err != nil {
		return err
	}

	if err := cmdutils.ClearCache(secretStore, credentialexchange.ConfigIniFile("")); err != nil {
		return err
	}
	util.Writeln("Credential cache cleared")
	return nil
}
