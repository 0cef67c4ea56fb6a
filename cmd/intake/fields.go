package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"medinauts/internal/intake/decoder"
	"medinauts/internal/intake/models"
)

type fieldInfo struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Codes []string `json:"codes,omitempty"`
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the intake fields and their accepted codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos := make([]fieldInfo, 0, len(models.Schema()))
			for _, f := range models.Schema() {
				info := fieldInfo{Key: string(f), Label: decoder.Label(f)}
				if pairs, ok := decoder.Codes(f); ok {
					for _, p := range pairs {
						info.Codes = append(info.Codes, p.String())
					}
				}
				infos = append(infos, info)
			}

			if a.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tPARAMETER\tCODES")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Key, info.Label, strings.Join(info.Codes, ", "))
			}
			return tw.Flush()
		},
	}
}
