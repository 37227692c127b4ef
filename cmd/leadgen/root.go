package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/usecase"
)

func newRootCmd(out io.Writer, open sessionOpener) *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:           "leadgen",
		Short:         "Discover local businesses and drive outreach to a booked meeting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.campaignFile, "campaign", envOr("CAMPAIGN_FILE", ""), "campaign YAML file (defaults apply when empty)")
	flags.StringVar(&opts.store, "store", envOr("LEADGEN_STORE", storeSQLite), "lead store: sqlite, redis, dynamodb or memory")
	flags.StringVar(&opts.sqlitePath, "db", envOr("LEADGEN_DB", "leadgen.db"), "sqlite database path")
	flags.StringVar(&opts.redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "redis address")
	flags.StringVar(&opts.table, "table", envOr("LEADS_TABLE", ""), "DynamoDB table name")
	flags.StringVar(&opts.provider, "provider", envOr("LEADGEN_PROVIDER", providerGemini), "generation provider: gemini or openai")
	flags.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	// withSession opens the configured stores and generator around fn.
	withSession := func(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()
			return fn(cmd, args, s)
		}
	}

	root.AddCommand(
		newScanCmd(withSession),
		newListCmd(withSession),
		newClearCmd(withSession),
		newReplyCmd(withSession),
		newDraftCmd(withSession),
		newRejectCmd(withSession),
		newPilotCmd(withSession),
		newMeetingsCmd(withSession),
		newStatsCmd(withSession),
		newActivityCmd(withSession),
		newServeCmd(withSession),
	)
	return root
}

type sessionRunner func(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error

func newScanCmd(run sessionRunner) *cobra.Command {
	var city, keyword string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Ask the model for businesses in a city and store them as leads",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			res, err := s.app.Dashboard.Scan(cmd.Context(), usecase.ScanInput{City: city, Keyword: keyword})
			if err != nil {
				return describe(err)
			}
			if len(res.Leads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No leads found for this search criteria. Try a different city or keyword.")
				return nil
			}
			renderLeads(cmd.OutOrStdout(), res.Leads)
			return nil
		}),
	}
	cmd.Flags().StringVar(&city, "city", "", "city to search")
	cmd.Flags().StringVar(&keyword, "keyword", "", "business niche, e.g. bakeries")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

func newListCmd(run sessionRunner) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored leads",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			leads, err := s.app.Dashboard.ListLeads(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if status != "" {
				want := domain.LeadStatus(strings.ToUpper(status))
				filtered := leads[:0]
				for _, l := range leads {
					if l.Status == want {
						filtered = append(filtered, l)
					}
				}
				leads = filtered
			}
			if len(leads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No leads.")
				return nil
			}
			renderLeads(cmd.OutOrStdout(), leads)
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "only show leads in this status")
	return cmd
}

func newClearCmd(run sessionRunner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored lead",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			if !yes {
				return errors.New("refusing to clear leads without --yes")
			}
			if err := s.app.Dashboard.ClearLeads(cmd.Context()); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All leads cleared.")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newReplyCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "reply <lead-id> <text>...",
		Short: "Record the prospect's reply to a contacted lead and negotiate",
		Args:  cobra.MinimumNArgs(2),
		RunE: run(func(cmd *cobra.Command, args []string, s *session) error {
			lead, err := s.app.Dashboard.InjectReply(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return describe(err)
			}
			renderConversation(cmd.OutOrStdout(), lead)
			return nil
		}),
	}
}

func newDraftCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "draft <lead-id>",
		Short: "Generate an outreach draft for a lead without contacting it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, s *session) error {
			lead, err := s.app.Dashboard.DraftMessage(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), lead.DraftMessage)
			return nil
		}),
	}
}

func newRejectCmd(run sessionRunner) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <lead-id>",
		Short: "Mark a lead as not interested",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, s *session) error {
			lead, err := s.app.Dashboard.RejectLead(cmd.Context(), args[0], reason)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", lead.Name, lead.Status)
			return nil
		}),
	}
	cmd.Flags().StringVar(&reason, "reason", "", "note recorded in the lead history")
	return cmd
}

func newPilotCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "pilot [lead-id]...",
		Short: "Run the outreach pilot over discovered leads (Ctrl-C stops between leads)",
		RunE: run(func(cmd *cobra.Command, args []string, s *session) error {
			report, err := s.app.Dashboard.RunPilot(cmd.Context(), args)
			if err != nil {
				return describe(err)
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		}),
	}
}

func newMeetingsCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "meetings",
		Short: "List booked meetings",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			meetings, err := s.app.Dashboard.ListMeetings(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if len(meetings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No meetings booked.")
				return nil
			}
			renderMeetings(cmd.OutOrStdout(), meetings)
			return nil
		}),
	}
}

func newStatsCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pipeline statistics",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			st, err := s.app.Dashboard.Stats(cmd.Context())
			if err != nil {
				return describe(err)
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		}),
	}
}

func newActivityCmd(run sessionRunner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent activity recorded by this process",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			renderActivity(cmd.OutOrStdout(), s.app.Dashboard.Activity(limit))
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries")
	return cmd
}

// describe turns use-case errors into operator-facing messages.
func describe(err error) error {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return err
	}
	switch ue.Code {
	case usecase.ErrorMissingCredential:
		return fmt.Errorf("no API key configured; set GEMINI_API_KEY (or OPENAI_API_KEY with --provider openai): %w", err)
	case usecase.ErrorAuthFailed:
		return fmt.Errorf("the API key was rejected or cannot access the model; use a key from a paid project: %w", err)
	case usecase.ErrorRateLimited:
		return fmt.Errorf("rate limited by the model provider, retry shortly: %w", err)
	default:
		return err
	}
}
