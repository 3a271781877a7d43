// Command rigolctl drives a Rigol DL3000 load and DP800 supply from the shell.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Electronic-Yoda/instruments"
	"github.com/Electronic-Yoda/instruments/serialport"
	"github.com/Electronic-Yoda/instruments/visawrap"
)

type app struct {
	cfg     instruments.Config
	envFile string
	verbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "rigolctl",
		Short:        "Control Rigol DL3000 electronic loads and DP800 power supplies",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose {
				instruments.SetLogger(log.New(os.Stderr, "rigolctl: ", log.LstdFlags))
			}
			var files []string
			if a.envFile != "" {
				files = append(files, a.envFile)
			}
			cfg, err := instruments.LoadConfig(files...)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.envFile, "env", "", "Environment file (default .env)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every command sent")

	cmd.AddCommand(a.newListCommand(), a.newLoadCommand(), a.newSupplyCommand())
	return cmd
}

func (a *app) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List VISA instrument resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			rm, err := visawrap.OpenResourceManager()
			if err != nil {
				return err
			}
			defer rm.Close()
			resources, err := rm.ListResources()
			if err != nil {
				return err
			}
			for _, resource := range resources {
				fmt.Fprintln(cmd.OutOrStdout(), resource)
			}
			return nil
		},
	}
}

// connect opens the resource matching id over the configured transport. With
// the serial transport id is the device path.
func (a *app) connect(id string) (instruments.Session, func(), error) {
	switch a.cfg.Transport {
	case instruments.TransportSerial:
		port, err := serialport.Open(serialport.Config{
			Name:        id,
			Baud:        a.cfg.SerialBaud,
			ReadTimeout: a.cfg.SerialTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return port, func() { port.Close() }, nil
	default:
		rm, err := visawrap.OpenResourceManager()
		if err != nil {
			return nil, nil, err
		}
		instr, err := rm.OpenMatching(id)
		if err != nil {
			rm.Close()
			return nil, nil, errors.Wrapf(err, "connect to \"%s\"", id)
		}
		if a.verbose {
			log.Printf("connected to %s", instr.ResourceName)
		}
		return instr, func() {
			instr.Close()
			rm.Close()
		}, nil
	}
}

func (a *app) withLoad(run func(dl *instruments.DL3000) error) error {
	session, closer, err := a.connect(a.cfg.DL3000Resource)
	if err != nil {
		return err
	}
	defer closer()
	dl := instruments.NewDL3000(session)
	a.cfg.Apply(dl, nil)
	return run(dl)
}

func (a *app) withSupply(run func(ps *instruments.DP800) error) error {
	session, closer, err := a.connect(a.cfg.DP800Resource)
	if err != nil {
		return err
	}
	defer closer()
	ps := instruments.NewDP800(session)
	a.cfg.Apply(nil, ps)
	return run(ps)
}
