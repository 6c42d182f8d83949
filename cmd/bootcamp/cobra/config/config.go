/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"

	"github.com/anixon604/bootcamp-cordapp/token/services/config"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/spf13/cobra"
)

// FlagName is the persistent flag holding the path of the configuration file
const FlagName = "config"

// Load reads the configuration named by the config flag of cmd and initializes logging
func Load(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(FlagName)
	if err != nil {
		return nil, err
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Spec: c.Logging.Spec, Format: c.Logging.Format, Writer: cmd.ErrOrStderr()})
	return c, nil
}

// Cmd returns the Cobra Command for the configuration
func Cmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration.",
	}
	configCmd.AddCommand(printCmd())
	return configCmd
}

func printCmd() *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration.",
		Long:  `Prints the configuration as read from the configuration file and the BOOTCAMP_ environment variables.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			c, err := Load(cmd)
			if err != nil {
				return err
			}
			if validate {
				if err := c.Validate(); err != nil {
					return err
				}
			}
			raw, err := c.Marshal()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "fail if the configuration is not valid")
	return cmd
}
