package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/usecase"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func renderLeads(out io.Writer, leads []domain.Lead) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Name", "City", "Phone", "Website", "Tier", "Status"})
	for _, l := range leads {
		website := "none"
		if l.Website != nil {
			website = *l.Website
		}
		phone := l.Phone
		if l.PhoneE164 != "" {
			phone = l.PhoneE164
		}
		t.AppendRow(table.Row{l.ID, l.Name, l.City, phone, text.Trim(website, 40), l.Tier, l.Status})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d leads", len(leads))})
	t.Render()
}

func renderConversation(out io.Writer, l domain.Lead) {
	fmt.Fprintf(out, "%s (%s)\n", l.Name, l.Status)
	t := newTable(out)
	t.AppendHeader(table.Row{"When", "Role", "Message"})
	for _, m := range l.History {
		t.AppendRow(table.Row{m.Timestamp.Format(time.Kitchen), m.Role, m.Content})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 80}})
	t.Render()
	if l.DraftMessage != "" {
		fmt.Fprintf(out, "Draft: %s\n", l.DraftMessage)
	}
}

func renderReport(out io.Writer, r usecase.RunReport) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Lead", "Name", "Outcome", "Step", "Error"})
	for _, res := range r.Results {
		t.AppendRow(table.Row{res.LeadID, res.Name, res.Outcome, res.Step, res.Error})
	}
	t.Render()
	fmt.Fprintf(out, "converted %d, negotiating %d, awaiting reply %d, failed %d\n",
		r.Count(usecase.OutcomeConverted), r.Count(usecase.OutcomeNegotiating),
		r.Count(usecase.OutcomeAwaitingReply), r.Count(usecase.OutcomeFailed))
	if r.Canceled {
		fmt.Fprintf(out, "Stopped early; %d leads not started.\n", r.Remaining)
	}
}

func renderMeetings(out io.Writer, meetings []domain.Meeting) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Lead", "Date", "Time", "Type", "Status", "Phone"})
	for _, m := range meetings {
		t.AppendRow(table.Row{m.ID, m.LeadName, m.Date, m.Time, m.Type, m.Status, m.Phone})
	}
	t.Render()
}

func renderStats(out io.Writer, s usecase.Stats) {
	t := newTable(out)
	t.AppendRows([]table.Row{
		{"Total leads", s.TotalLeads},
		{"Found today", s.FoundToday},
		{"Hot", s.Hot},
		{"Warm", s.Warm},
		{"Drafted", s.Drafted},
		{"Contacted", s.Contacted},
		{"Negotiating", s.Negotiating},
		{"Converted", s.Converted},
		{"Rejected", s.Rejected},
		{"Meetings", s.Meetings},
		{"Pipeline value", fmt.Sprintf("$%d", s.PipelineValue)},
	})
	t.Render()
}

func renderActivity(out io.Writer, entries []activity.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No activity recorded.")
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Time", "Kind", "Lead", "Message"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Time.Format(time.TimeOnly), e.Kind, e.LeadID, e.Message})
	}
	t.Render()
}
