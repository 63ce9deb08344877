package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tvbhpc/pkg/unicore"
)

func newSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List configured sites and, with --remote, what the registry offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			table := a.cfg.SiteTable()
			remote, _ := cmd.Flags().GetBool("remote")
			if !remote {
				tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SITE\tMODULE")
				for _, name := range table.Names() {
					fmt.Fprintf(tw, "%s\t%s\n", name, table.Lookup(name).Module)
				}
				return tw.Flush()
			}

			token, err := a.tokens().Token()
			if err != nil {
				return err
			}
			t := unicore.NewTransport(token, unicore.WithLogger(a.logger), unicore.WithUserAgent(userAgent()))
			urls, err := unicore.NewRegistry(t, a.cfg.RegistryURL).SiteURLs(context.Background())
			if err != nil {
				return fmt.Errorf("querying registry: %w", err)
			}

			names := make([]string, 0, len(urls))
			for name := range urls {
				names = append(names, name)
			}
			sort.Strings(names)

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SITE\tMODULE\tURL")
			for _, name := range names {
				module := "-"
				if table.Known(name) {
					module = table.Lookup(name).Module
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, module, urls[name])
			}
			for _, name := range table.Names() {
				if _, ok := urls[name]; !ok {
					fmt.Fprintf(tw, "%s\t%s\t(down)\n", name, table.Lookup(name).Module)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("remote", false, "Query the UNICORE registry")
	return cmd
}
