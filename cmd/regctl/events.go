package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"athletics-registry/internal/models"
)

func eventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"kejohanan"},
		Short:   "List, create and select events",
	}
	cmd.AddCommand(eventsListCmd(a), eventsCreateCmd(a), eventsUpdateCmd(a), eventsSelectCmd(a))
	return cmd
}

func eventsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := a.events.List(a.ctx(cmd))
			if err != nil {
				return err
			}
			sel, hasSel := a.events.Selected()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tNAME\tDATE\tVENUE\t100M\t200M\t110MH")
			for _, ev := range events {
				mark := ""
				if hasSel && ev.SameAs(sel) {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
					mark, ev.ID, ev.Name, ev.Date, ev.Venue, ev.Lanes100M, ev.Lanes200M, ev.Lanes110MHurdles)
			}
			return w.Flush()
		},
	}
}

func eventsCreateCmd(a *app) *cobra.Command {
	var d models.EventDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := a.events.Create(a.ctx(cmd), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d %s\n", ev.ID, ev.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Name, "name", "", "event name")
	f.StringVar(&d.Date, "date", "", "event date")
	f.StringVar(&d.Venue, "venue", "", "venue")
	f.IntVar(&d.Lanes100M, "lanes-100m", 0, "lanes for 100M")
	f.IntVar(&d.Lanes200M, "lanes-200m", 0, "lanes for 200M")
	f.IntVar(&d.Lanes110MHurdles, "lanes-110mh", 0, "lanes for 110M hurdles")
	return cmd
}

func eventsUpdateCmd(a *app) *cobra.Command {
	var (
		name, date, venue string
		l100, l200, l110  int
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an event (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			var p models.EventPatch
			f := cmd.Flags()
			if f.Changed("name") {
				p.Name = &name
			}
			if f.Changed("date") {
				p.Date = &date
			}
			if f.Changed("venue") {
				p.Venue = &venue
			}
			if f.Changed("lanes-100m") {
				p.Lanes100M = &l100
			}
			if f.Changed("lanes-200m") {
				p.Lanes200M = &l200
			}
			if f.Changed("lanes-110mh") {
				p.Lanes110MHurdles = &l110
			}
			ev, err := a.events.Update(a.ctx(cmd), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d %s\n", ev.ID, ev.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "event name")
	f.StringVar(&date, "date", "", "event date")
	f.StringVar(&venue, "venue", "", "venue")
	f.IntVar(&l100, "lanes-100m", 0, "lanes for 100M")
	f.IntVar(&l200, "lanes-200m", 0, "lanes for 200M")
	f.IntVar(&l110, "lanes-110mh", 0, "lanes for 110M hurdles")
	return cmd
}

func eventsSelectCmd(a *app) *cobra.Command {
	var clearSel bool
	cmd := &cobra.Command{
		Use:   "select [id]",
		Short: "Pick the event later commands work on",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearSel {
				return a.events.ClearSelection()
			}
			if len(args) == 0 {
				return fmt.Errorf("event id required")
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if _, err := a.events.List(a.ctx(cmd)); err != nil {
				return err
			}
			ev, ok := a.events.Select(id)
			if !ok {
				return fmt.Errorf("event %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected %d %s\n", ev.ID, ev.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearSel, "clear", false, "drop the selection")
	return cmd
}
