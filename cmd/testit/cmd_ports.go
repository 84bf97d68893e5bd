package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buckleypaul/testit/internal/serial"
	"github.com/buckleypaul/testit/internal/ui"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a board can be reached on",
	RunE:  runPorts,
}

func runPorts(cmd *cobra.Command, _ []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, ui.DimStyle.Render("No serial ports found"))
		return nil
	}
	for _, p := range ports {
		label := p.Name
		if p.IsUSB {
			label += " " + ui.Badge("USB", ui.Secondary)
		}
		fmt.Fprintln(out, label)
		if detail := p.String(); detail != p.Name {
			fmt.Fprintln(out, "  "+ui.DimStyle.Render(detail))
		}
	}
	return nil
}
