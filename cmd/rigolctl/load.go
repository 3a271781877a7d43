package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Electronic-Yoda/instruments"
)

func (a *app) newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "DL3000 electronic load",
	}
	cmd.AddCommand(
		a.loadAction("enable", "Turn the load input on", func(dl *instruments.DL3000) error { return dl.Enable() }),
		a.loadAction("disable", "Turn the load input off", func(dl *instruments.DL3000) error { return dl.Disable() }),
		a.loadAction("reset", "Reset the load", func(dl *instruments.DL3000) error { return dl.Reset() }),
		a.loadAction("sense", "Switch voltage sensing to the Sense terminals", func(dl *instruments.DL3000) error { return dl.SetupSense() }),
		a.newLoadMeasureCommand(),
		a.newLoadModeCommand(),
		a.newLoadSetCommand("cc", "Constant current mode at the given current",
			func(dl *instruments.DL3000, v float64, on bool) error { return dl.SetCC(v, on) }),
		a.newLoadSetCommand("cp", "Constant power mode at the given power",
			func(dl *instruments.DL3000, v float64, on bool) error { return dl.SetCP(v, on) }),
		a.newLoadSlewCommand(),
		a.newDischargeCommand(),
		a.newCutoffCommand(),
		a.newKeyCommand(),
	)
	return cmd
}

func (a *app) loadAction(use, short string, run func(dl *instruments.DL3000) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLoad(run)
		},
	}
}

func (a *app) newLoadMeasureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "measure",
		Short: "Print measured voltage, current, power and resistance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLoad(func(dl *instruments.DL3000) error {
				readings := []struct {
					name string
					unit string
					read func() (float64, error)
				}{
					{"voltage", "V", dl.Voltage},
					{"current", "A", dl.Current},
					{"power", "W", dl.Power},
					{"resistance", "Ohm", dl.Resistance},
				}
				for _, r := range readings {
					value, err := r.read()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g %s\n", r.name, value, r.unit)
				}
				return nil
			})
		},
	}
}

func (a *app) newLoadModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mode [CC|CV|CR|CP]",
		Short: "Print or set the regulation mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLoad(func(dl *instruments.DL3000) error {
				if len(args) == 0 {
					mode, err := dl.Mode()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), mode)
					return nil
				}
				mode, err := instruments.ParseMode(args[0])
				if err != nil {
					return err
				}
				return dl.SetMode(mode)
			})
		},
	}
}

func (a *app) newLoadSetCommand(use, short string, set func(dl *instruments.DL3000, v float64, on bool) error) *cobra.Command {
	var activate bool
	cmd := &cobra.Command{
		Use:   use + " VALUE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			return a.withLoad(func(dl *instruments.DL3000) error {
				return set(dl, value, activate)
			})
		},
	}
	cmd.Flags().BoolVar(&activate, "on", true, "Turn the input on afterwards")
	return cmd
}

func (a *app) newLoadSlewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slew RATE",
		Short: "Set the constant current slew rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			return a.withLoad(func(dl *instruments.DL3000) error {
				return dl.SetCCSlewRate(rate)
			})
		},
	}
}

func (a *app) newDischargeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discharge CURRENT",
		Short: "Type the battery discharge current on the keypad",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := instruments.ParseEntry(args[0])
			if err != nil {
				return err
			}
			return a.withLoad(func(dl *instruments.DL3000) error {
				ok, err := dl.SetBatteryDischargeCurrent(current)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("discharge current %s rejected: it must be below 40 A", current)
				}
				return nil
			})
		},
	}
}

func (a *app) newCutoffCommand() *cobra.Command {
	var battery float64
	cmd := &cobra.Command{
		Use:   "cutoff VOLTAGE",
		Short: "Type the battery cutoff voltage on the keypad",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := instruments.ParseEntry(args[0])
			if err != nil {
				return err
			}
			return a.withLoad(func(dl *instruments.DL3000) error {
				ok, err := dl.SetBatteryCutoffVoltage(battery, cutoff)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("cutoff %s V rejected: battery voltage %g V is below it", cutoff, battery)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&battery, "battery", 0, "Present battery voltage")
	cmd.MarkFlagRequired("battery")
	return cmd
}

func (a *app) newKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key CODE...",
		Short: "Press front-panel keys by code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]instruments.KeyCode, 0, len(args))
			for _, arg := range args {
				code, err := strconv.Atoi(arg)
				if err != nil {
					return err
				}
				keys = append(keys, instruments.KeyCode(code))
			}
			return a.withLoad(func(dl *instruments.DL3000) error {
				for _, key := range keys {
					if key == instruments.KeyApp {
						if err := dl.PressAppKey(); err != nil {
							return err
						}
						continue
					}
					if err := dl.PressKey(key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
