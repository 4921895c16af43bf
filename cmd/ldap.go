package cmd

import (
	"fmt"
	"os"
	"os/user"

	"github.com/dnitsch/objstore-cli/internal/cmdutils"
	"github.com/dnitsch/objstore-cli/internal/credentialexchange"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ldapCmd = &cobra.Command{
	Use:   "ldap",
	Short: "Get temporary credentials for an LDAP user and output them to stdout",
	Long: `Exchanges the LDAP username and password for temporary credentials (AssumeRoleWithLDAPIdentity).
The password can also be supplied through $` + credentialexchange.PASSWORD_ENV_VAR + `.
With --demo the credentials are used to run the bucket/object demo instead of being printed.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, args); err != nil {
			return err
		}
		reloadBefore, duration := viper.GetInt("reload-before"), viper.GetInt("duration")
		if reloadBefore != 0 && duration != 0 && reloadBefore > duration {
			return fmt.Errorf("reload-before: %v, must be less than duration: %v", reloadBefore, duration)
		}
		return nil
	},
	RunE: getLDAP,
}

func init() {
	ldapCmd.Flags().StringP("endpoint", "e", DEFAULT_ENDPOINT, "Object store endpoint serving the STS API")
	ldapCmd.Flags().StringP("username", "u", "", "LDAP username")
	ldapCmd.Flags().StringP("password", "p", "", "LDAP password, prefer setting "+credentialexchange.PASSWORD_ENV_VAR)
	ldapCmd.Flags().String("encoding", string(credentialexchange.EncodingLegacy), "Password encoding on the query string [legacy, rfc3986]")
	ldapCmd.Flags().Duration("timeout", credentialexchange.DEFAULT_TIMEOUT, "Timeout of the exchange request")
	ldapCmd.Flags().Int("duration", 0, "Requested session duration in seconds, the server default is used when 0")
	ldapCmd.Flags().Bool("cache", false, "Reuse credentials stored in the OS secret store until they expire")
	ldapCmd.Flags().Int("reload-before", 0, "Triggers a credentials refresh this many seconds before the cached credentials expire")
	ldapCmd.Flags().Bool("demo", false, "Run the bucket/object demo with the obtained credentials")
	addDemoFlags(ldapCmd)
	RootCmd.AddCommand(ldapCmd)
}

func getLDAP(cmd *cobra.Command, args []string) error {
	encoding, err := credentialexchange.ParseEncoding(viper.GetString("encoding"))
	if err != nil {
		return err
	}

	conf := credentialexchange.CredentialConfig{
		Endpoint:        viper.GetString("endpoint"),
		Username:        viper.GetString("username"),
		Password:        viper.GetString("password"),
		Encoding:        encoding,
		Timeout:         viper.GetDuration("timeout"),
		DurationSeconds: viper.GetInt("duration"),
		BaseConfig: credentialexchange.BaseConfig{
			StoreInProfile:   viper.GetBool("store-profile"),
			CfgSectionName:   viper.GetString("cfg-section"),
			UseCache:         viper.GetBool("cache"),
			ReloadBeforeTime: viper.GetInt("reload-before"),
		},
	}

	svc := credentialexchange.NewHttpClient(conf.Timeout)

	var secretStore cmdutils.SecretStorageImpl
	if conf.BaseConfig.UseCache {
		user, err := user.Current()
		if err != nil {
			return err
		}
		ss, err := credentialexchange.NewSecretStore(credentialexchange.SessionKey(conf.Endpoint, conf.Username), os.TempDir(), user.Username)
		if err != nil {
			return err
		}
		secretStore = ss
	}

	if viper.GetBool("demo") {
		provider, err := cmdutils.LDAPCredentialsProvider(cmd.Context(), svc, secretStore, conf)
		if err != nil {
			return err
		}
		return runDemo(cmd, provider)
	}

	return cmdutils.WriteLDAPCreds(cmd.Context(), svc, secretStore, conf, cmd.OutOrStdout())
}
