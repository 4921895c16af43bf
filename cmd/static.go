package cmd

import (
	"github.com/dnitsch/objstore-cli/internal/cmdutils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var staticCmd = &cobra.Command{
	Use:     "static",
	Short:   "Run the bucket/object demo with a static access key and secret key",
	Long:    `Runs the bucket/object demo against the endpoint with long lived credentials, no LDAP exchange is involved.`,
	PreRunE: bindFlags,
	RunE:    runStatic,
}

func init() {
	staticCmd.Flags().StringP("endpoint", "e", DEFAULT_ENDPOINT, "Object store endpoint")
	staticCmd.Flags().String("access-key", "", "Access key")
	staticCmd.Flags().String("secret-key", "", "Secret key")
	addDemoFlags(staticCmd)
	RootCmd.AddCommand(staticCmd)
}

func runStatic(cmd *cobra.Command, args []string) error {
	provider, err := cmdutils.StaticCredentialsProvider(viper.GetString("access-key"), viper.GetString("secret-key"))
	if err != nil {
		return err
	}
	return runDemo(cmd, provider)
}
