package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dnitsch/objstore-cli/internal/credentialexchange"
	"github.com/dnitsch/objstore-cli/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DEFAULT_ENDPOINT = "http://localhost:9000"
	ENV_PREFIX       = "OBJSTORE_CLI"
)

var (
	cfgFile string
	RootCmd = &cobra.Command{
		Use:   credentialexchange.SELF_NAME,
		Short: "CLI tool for retrieving temporary object store credentials through LDAP",
		Long: `CLI tool for retrieving temporary S3 credentials from an S3 compatible object store (MinIO)
by exchanging an LDAP username and password (AssumeRoleWithLDAPIdentity).
Returns the credential_process payload on stdout, stores them under a named profile in the
shared credentials file, or runs a bucket/object demo with them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		util.Exit(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", fmt.Sprintf("config file (default is $HOME/.%s.yaml)", credentialexchange.SELF_NAME))
	RootCmd.PersistentFlags().StringP("cfg-section", "", "", "profile section name in the shared credentials file")
	RootCmd.PersistentFlags().BoolP("store-profile", "s", false, "By default the credentials are returned to stdout to be used by the credential_process. Set this flag to instead store the credentials under a named profile section")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	viper.BindPFlags(RootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(fmt.Sprintf(".%s", credentialexchange.SELF_NAME))
	}

	viper.SetEnvPrefix(ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	util.SetVerbose(viper.GetBool("verbose"))
	credentialexchange.UserAgent = fmt.Sprintf("%s/%s", credentialexchange.SELF_NAME, Version)

	if err := viper.ReadInConfig(); err == nil {
		util.Traceln("Using config file: %s", viper.ConfigFileUsed())
	}
}

// bindFlags lets the config file and env supply values for the flags of the
// running command, flags set on the command line still win
func bindFlags(cmd *cobra.Command, args []string) error {
	return viper.BindPFlags(cmd.Flags())
}
