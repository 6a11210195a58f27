package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hpcio/tierctl/pkg/discovery"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "list storage devices eligible to back a tier",
	Run: func(cmd *cobra.Command, args []string) {
		listDevices()
	},
}

func listDevices() {
	candidates, err := discovery.FindStorage()
	if err != nil {
		log.Fatalf("storage discovery failed, err: %s", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Mount", "Type", "Shared", "Available"})
	var total uint64
	for _, c := range candidates {
		total += c.AvailableBytes
		t.AppendRow(table.Row{c.Mount, string(c.Type), c.Shared, humanize.IBytes(c.AvailableBytes)})
	}
	t.AppendFooter(table.Row{"Totals:", "", len(candidates), humanize.IBytes(total)})
	t.SetStyle(table.StyleColoredGreenWhiteOnBlack)
	t.Render()

	if mem, err := discovery.AvailableMemory(); err == nil {
		log.Infof("available physical memory: %s", humanize.IBytes(mem))
	}
}
