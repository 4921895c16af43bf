package cmd

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dnitsch/objstore-cli/internal/cmdutils"
	"github.com/dnitsch/objstore-cli/internal/objectstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func addDemoFlags(cmd *cobra.Command) {
	cmd.Flags().String("bucket", "test", "Bucket created and removed by the demo")
	cmd.Flags().String("key", "file", "Object key uploaded by the demo")
	cmd.Flags().String("backend", string(objectstore.BackendS3), "Client library used for the demo [s3, minio]")
	cmd.Flags().Bool("s3v4", true, "Sign requests with signature V4, V2 is only available on the minio backend")
	cmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")
	cmd.Flags().String("region", objectstore.DEFAULT_REGION, "Region used for signing")
}

func runDemo(cmd *cobra.Command, provider aws.CredentialsProvider) error {
	backend, err := objectstore.ParseBackend(viper.GetString("backend"))
	if err != nil {
		return err
	}
	conf := objectstore.Config{
		Endpoint:     viper.GetString("endpoint"),
		Region:       viper.GetString("region"),
		Backend:      backend,
		UseV4Signing: viper.GetBool("s3v4"),
		Insecure:     viper.GetBool("insecure"),
	}
	demoConf := objectstore.DemoConfig{
		Bucket: viper.GetString("bucket"),
		Key:    viper.GetString("key"),
	}
	return cmdutils.RunDemo(cmd.Context(), provider, conf, demoConf, cmd.OutOrStdout())
}
