package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objstore-policy-mgmt/internal/policy"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Retrieve the existing policy for the configured domain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, settings, err := newAdminClient(cmd.Context())
		if err != nil {
			return err
		}

		p, err := client.GetDomainPolicy(cmd.Context(), settings.TenancyName, settings.DomainName)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), p.Serialize())
		return nil
	},
}

var updatePolicyFilepath string

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the policy for the configured domain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := policy.ParseFile(updatePolicyFilepath)
		if err != nil {
			return err
		}

		client, settings, err := newAdminClient(cmd.Context())
		if err != nil {
			return err
		}

		return client.PutDomainPolicy(cmd.Context(), settings.TenancyName, settings.DomainName, p)
	},
}

var etcCmd = &cobra.Command{
	Use:   "etc",
	Short: "Retrieve the etc metadata document for the configured domain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, settings, err := newAdminClient(cmd.Context())
		if err != nil {
			return err
		}

		doc, err := client.GetDomainEtc(cmd.Context(), settings.TenancyName, settings.DomainName)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updatePolicyFilepath, "policy-filepath", "p", "",
		"S3 policy file to send as an update")
	updateCmd.MarkFlagRequired("policy-filepath")
}
