package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/padraicbc/riderapi/identity"
)

func newDuplicatesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List probable duplicate rider groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.resolver.DetectDuplicateGroups(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(groups)
			}
			a.printGroups(groups)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print groups as JSON")
	return cmd
}

func (a *app) printGroups(groups []identity.DuplicateGroup) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PASS\tKEEP\tMERGE\tNAME\tLICENSE")
	for _, g := range groups {
		name, lic := "", ""
		for _, m := range g.Members {
			if m.Rider.ID == g.KeepID {
				name = m.Rider.Firstname + " " + m.Rider.Lastname
				lic = m.Tier.String()
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%s\n", g.Pass, g.KeepID, g.MergeIDs, name, lic)
	}
	_ = w.Flush()
	fmt.Fprintf(a.out, "%d groups\n", len(groups))
}

func newMergeCmd(a *app) *cobra.Command {
	var keep int64
	cmd := &cobra.Command{
		Use:   "merge ID [ID...]",
		Short: "Merge riders into one; without --keep the survivor is ranked",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			merge := ids
			if keep == 0 {
				group, err := a.resolver.PlanGroup(cmd.Context(), ids)
				if err != nil {
					return err
				}
				keep, merge = group.KeepID, group.MergeIDs
			}
			report, err := a.resolver.MergeGroup(cmd.Context(), keep, merge)
			if err != nil {
				return err
			}
			return a.printJSON(report)
		},
	}
	cmd.Flags().Int64Var(&keep, "keep", 0, "Surviving rider id")
	return cmd
}

func newMergeAllCmd(a *app) *cobra.Command {
	var (
		apply bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "merge-all",
		Short: "Detect duplicate groups and merge them (dry-run unless --apply)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.resolver.DetectDuplicateGroups(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(groups) > limit {
				groups = groups[:limit]
			}
			if !apply {
				a.printGroups(groups)
				fmt.Fprintln(a.out, "dry run, pass --apply to merge")
				return nil
			}

			report := a.resolver.MergeAll(cmd.Context(), groups)
			if err := a.printJSON(report); err != nil {
				return err
			}
			if report.Failed > 0 || report.Skipped > 0 {
				return fmt.Errorf("run %s: %d groups failed, %d skipped", report.RunID, report.Failed, report.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply merges (default is dry-run)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Merge at most this many groups")
	return cmd
}

func newExcludeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exclude ID ID [ID...]",
		Short: "Mark riders as different people so they are never grouped",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			n, err := a.resolver.ExcludePair(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d pairs excluded\n", n)
			return nil
		},
	}
}

func newMatchCmd(a *app) *cobra.Command {
	var (
		in        identity.IncomingRecord
		birthYear int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show the canonical rider an incoming record resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if birthYear > 0 {
				in.BirthYear = &birthYear
			}
			res, err := a.resolver.FindCandidate(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().StringVar(&in.Firstname, "first", "", "First name (required)")
	cmd.Flags().StringVar(&in.Lastname, "last", "", "Last name (required)")
	cmd.Flags().StringVar(&in.ClubName, "club", "", "Club name")
	cmd.Flags().IntVar(&birthYear, "birth-year", 0, "Birth year")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	return cmd
}
