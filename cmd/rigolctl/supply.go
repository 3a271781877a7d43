package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Electronic-Yoda/instruments"
)

var errNoChannel = errors.New("select needs --channel")

func (a *app) newSupplyCommand() *cobra.Command {
	var channel int
	cmd := &cobra.Command{
		Use:   "supply",
		Short: "DP800 power supply",
	}
	cmd.PersistentFlags().IntVarP(&channel, "channel", "c", 0, "Select this channel first (1-3)")

	// every subcommand selects --channel before running
	supply := func(run func(ps *instruments.DP800) error) error {
		return a.withSupply(func(ps *instruments.DP800) error {
			if channel != 0 {
				if err := ps.SelectChannel(channel); err != nil {
					return err
				}
			}
			return run(ps)
		})
	}
	action := func(use, short string, run func(ps *instruments.DP800) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return supply(run)
			},
		}
	}
	setter := func(use, short string, set func(ps *instruments.DP800, v float64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " VALUE",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				return supply(func(ps *instruments.DP800) error {
					return set(ps, value)
				})
			},
		}
	}

	channelCmd := &cobra.Command{
		Use:   "channel",
		Short: "Print the selected channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return supply(func(ps *instruments.DP800) error {
				id, err := ps.Channel()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "CH%d\n", id)
				return nil
			})
		},
	}
	selectCmd := &cobra.Command{
		Use:   "select",
		Short: "Select --channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if channel == 0 {
				return errNoChannel
			}
			return supply(func(ps *instruments.DP800) error { return nil })
		},
	}
	measureCmd := &cobra.Command{
		Use:   "measure [Current|Voltage|Power]",
		Short: "Measure on the selected channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantities := []instruments.Quantity{
				instruments.QuantityVoltage, instruments.QuantityCurrent, instruments.QuantityPower,
			}
			if len(args) == 1 {
				name := strings.ToLower(args[0])
				if name == "" {
					return fmt.Errorf("empty measurement name")
				}
				quantities = []instruments.Quantity{instruments.Quantity(strings.ToUpper(name[:1]) + name[1:])}
			}
			return supply(func(ps *instruments.DP800) error {
				for _, q := range quantities {
					value, err := ps.Measure(q)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g\n", q, value)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(
		channelCmd,
		measureCmd,
		selectCmd,
		action("enable", "Turn the channel output on", func(ps *instruments.DP800) error { return ps.EnableChannel() }),
		action("disable", "Turn the channel output off", func(ps *instruments.DP800) error { return ps.DisableChannel() }),
		action("reset", "Reset the supply", func(ps *instruments.DP800) error { return ps.Reset() }),
		action("protect-off", "Disable over-voltage and over-current protection",
			func(ps *instruments.DP800) error { return ps.DisableProtection() }),
		setter("current", "Set the channel current", (*instruments.DP800).SetCurrent),
		setter("voltage", "Set the channel voltage", (*instruments.DP800).SetVoltage),
		setter("ovp", "Enable over-voltage protection at the given voltage", (*instruments.DP800).SetOVP),
		setter("ocp", "Enable over-current protection at the given current", (*instruments.DP800).SetOCP),
	)
	return cmd
}
