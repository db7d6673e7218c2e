package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"athletics-registry/internal/heats"
	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/repository"
)

func participantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "participants",
		Aliases: []string{"peserta"},
		Short:   "Manage participants of the selected event",
	}
	cmd.AddCommand(participantsListCmd(a), participantsAddCmd(a), participantsUpdateCmd(a), participantsDeleteCmd(a))
	return cmd
}

func participantsListCmd(a *app) *cobra.Command {
	var team, category, age string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List participants of the selected event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.ctx(cmd)
			if err := policy.Authorize(ctx, policy.ListParticipants); err != nil {
				return err
			}
			ps, err := a.participants.List(ctx)
			if err != nil {
				return err
			}
			ps = repository.FilterParticipants(ps, models.ParticipantFilter{
				Team:     team,
				Category: models.Category(category),
				AgeGroup: models.AgeGroup(age),
			})
			return printParticipants(cmd.OutOrStdout(), ps)
		},
	}
	f := cmd.Flags()
	f.StringVar(&team, "team", "", "only this team")
	f.StringVar(&category, "category", "", "only this category (LELAKI, PEREMPUAN)")
	f.StringVar(&age, "age", "", "only this age group (e.g. \"9 TAHUN\")")
	return cmd
}

func printParticipants(out io.Writer, ps []models.Participant) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEAM\tBIB\tCATEGORY\tAGE\tNAME\tENTRIES")
	for _, p := range ps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Team, p.BibNumber, p.Category, p.AgeGroup, p.Name, p.Entries)
	}
	return w.Flush()
}

func participantsAddCmd(a *app) *cobra.Command {
	var (
		d       models.ParticipantDraft
		cat     string
		age     string
		entries string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a participant under the selected event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d.Category = models.Category(cat)
			d.AgeGroup = models.AgeGroup(age)
			d.Entries = models.ParseEntries(entries)
			p, err := a.participants.Create(a.ctx(cmd), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", p.Name, p.Entries)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Team, "team", "", "team")
	f.StringVar(&d.BibNumber, "bib", "", "bib number")
	f.StringVar(&d.Name, "name", "", "participant name")
	f.StringVar(&cat, "category", "", "LELAKI or PEREMPUAN")
	f.StringVar(&age, "age", "", "age group, e.g. \"9 TAHUN\"")
	f.StringVar(&entries, "entries", "", "comma separated entries, e.g. \"100M, 4X100M\"")
	return cmd
}

func participantsUpdateCmd(a *app) *cobra.Command {
	var team, bib, name, cat, age, entries string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a participant (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			var p models.ParticipantPatch
			f := cmd.Flags()
			if f.Changed("team") {
				p.Team = &team
			}
			if f.Changed("bib") {
				p.BibNumber = &bib
			}
			if f.Changed("name") {
				p.Name = &name
			}
			if f.Changed("category") {
				c := models.Category(cat)
				p.Category = &c
			}
			if f.Changed("age") {
				g := models.AgeGroup(age)
				p.AgeGroup = &g
			}
			if f.Changed("entries") {
				es := models.ParseEntries(entries)
				p.Entries = &es
			}
			if err := a.participants.Update(a.ctx(cmd), id, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d\n", id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&team, "team", "", "team")
	f.StringVar(&bib, "bib", "", "bib number")
	f.StringVar(&name, "name", "", "participant name")
	f.StringVar(&cat, "category", "", "LELAKI or PEREMPUAN")
	f.StringVar(&age, "age", "", "age group")
	f.StringVar(&entries, "entries", "", "comma separated entries")
	return cmd
}

func participantsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a participant (admin)",
		Long:  "Remove a participant. Later rows move up, so their ids drop by one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if err := a.participants.Delete(a.ctx(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func heatsCmd(a *app) *cobra.Command {
	var (
		req    heats.Request
		entry  string
		cat    string
		age    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "heats",
		Short: "Draw heats for one entry of the selected event (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.ctx(cmd)
			if err := policy.Authorize(ctx, policy.GenerateHeats); err != nil {
				return err
			}
			ev, ok := a.events.Selected()
			if !ok {
				return repository.ErrNoEventSelected
			}
			ps, err := a.participants.List(ctx)
			if err != nil {
				return err
			}
			req.Entry = models.Entry(entry)
			req.Category = models.Category(cat)
			req.AgeGroup = models.AgeGroup(age)
			res, err := heats.Generate(ev, ps, req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printHeats(out, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&entry, "entry", "", "entry, e.g. 100M")
	f.StringVar(&cat, "category", "", "category")
	f.StringVar(&age, "age", "", "age group")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("entry")
	return cmd
}

func printHeats(out io.Writer, res heats.Result) error {
	fmt.Fprintf(out, "%s: %s %s %s\n", res.Event, res.Entry, res.Category, res.AgeGroup)
	if len(res.Heats) == 0 {
		fmt.Fprintln(out, "no starters")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, h := range res.Heats {
		fmt.Fprintf(w, "heat %d\n", h.Number)
		for _, s := range h.Slots {
			lane := "-"
			if s.Lane > 0 {
				lane = strconv.Itoa(s.Lane)
			}
			for _, p := range s.Participants {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", lane, s.Team, p.BibNumber, p.Name)
			}
		}
	}
	return w.Flush()
}
