package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/middleware"
)

func newQueryCmd(st *state) *cobra.Command {
	var (
		businessType    string
		applicationType string
		asJSON          bool
	)
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Build the index and answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("query is required")
			}

			// A failed build still leaves a usable state (DEGRADED or
			// guidance), so its error is only reported.
			if status, err := st.core.Indexes.Build(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s index %s: %v\n", failedTag("!"), status.State, err)
			}

			resp, outcome := st.core.Assistant.Answer(cmd.Context(), domain.Query{
				Text:            question,
				BusinessType:    businessType,
				ApplicationType: applicationType,
			})
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"response": resp,
					"query":    question,
				})
			}
			printResponse(cmd.OutOrStdout(), resp)
			fmt.Fprintf(cmd.ErrOrStderr(), "(%s)\n", outcome)
			return nil
		},
	}
	cmd.Flags().StringVarP(&businessType, "business-type", "b", "", "kind of business, e.g. restaurant")
	cmd.Flags().StringVarP(&applicationType, "application-type", "a", "", "licence: fssai, shops_act, gst")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response as JSON")
	return cmd
}

func newIndexCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the knowledge index and report its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := st.core.Indexes.Build(cmd.Context())
			printStatus(cmd.OutOrStdout(), status)
			return err
		},
	}
}

func newSuggestionsCmd(st *state) *cobra.Command {
	var businessType, applicationType string
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List the documents needed for an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if businessType == "" || applicationType == "" {
				return fmt.Errorf("business type and application type are required")
			}
			docs := st.core.Assistant.DocumentSuggestions(businessType, applicationType)
			out := cmd.OutOrStdout()
			printList(out, "Common documents", docs.Common)
			printList(out, "Specific documents", docs.Specific)
			return nil
		},
	}
	cmd.Flags().StringVarP(&businessType, "business-type", "b", "", "kind of business")
	cmd.Flags().StringVarP(&applicationType, "application-type", "a", "", "licence: fssai, shops_act, gst")
	return cmd
}

func newEligibilityCmd(st *state) *cobra.Command {
	var (
		businessType    string
		applicationType string
		details         map[string]string
	)
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Check basic eligibility for an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if businessType == "" || applicationType == "" {
				return fmt.Errorf("business type and application type are required")
			}
			flags, err := parseDetails(details)
			if err != nil {
				return err
			}

			res := st.core.Assistant.CheckEligibility(businessType, applicationType, flags)
			out := cmd.OutOrStdout()
			if res.Eligible {
				fmt.Fprintln(out, sourceTag("Eligible"))
			} else {
				fmt.Fprintln(out, failedTag("Not eligible"))
			}
			printList(out, "Requirements", res.Requirements)
			printList(out, "Missing requirements", res.MissingRequirements)
			return nil
		},
	}
	cmd.Flags().StringVarP(&businessType, "business-type", "b", "", "kind of business")
	cmd.Flags().StringVarP(&applicationType, "application-type", "a", "", "licence: fssai, shops_act")
	cmd.Flags().StringToStringVarP(&details, "detail", "d", nil, "business detail flag, e.g. registered=false")
	return cmd
}

func newTokenCmd(st *state) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if ttl <= 0 {
				ttl = time.Duration(st.cfg.JWTExpiration) * time.Hour
			}
			token, err := middleware.GenerateJWT(domain.UserContext{UserID: userID, Role: role}, middleware.JWTConfig{
				Secret:    st.cfg.JWTSecret,
				Issuer:    st.cfg.JWTIssuer,
				ExpiresIn: ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", "user", "role claim (admin may rebuild the index)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_EXPIRATION_HOURS)")
	return cmd
}

func parseDetails(raw map[string]string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("detail %s: expected true or false, got %q", k, v)
		}
		out[k] = b
	}
	return out, nil
}

func printResponse(w io.Writer, resp domain.Response) {
	var tag string
	switch resp.SourceTag {
	case domain.SourceSystem:
		tag = systemTag("[" + resp.SourceTag + "]")
	case domain.SourceGeneral:
		tag = generalTag("[" + resp.SourceTag + "]")
	default:
		tag = sourceTag("[" + resp.SourceTag + "]")
	}
	fmt.Fprintf(w, "%s %s\n", tag, resp.Text)
	if len(resp.RelevantSources) > 1 {
		fmt.Fprintf(w, "%s %s\n", heading("Sources:"), strings.Join(resp.RelevantSources, ", "))
	}
	if len(resp.Suggestions) > 0 {
		printList(w, "Suggestions", resp.Suggestions)
	}
}

func printStatus(w io.Writer, st domain.IndexStatus) {
	fmt.Fprintf(w, "%s %s\n", heading("State:"), st.State)
	if st.Kind != "" {
		fmt.Fprintf(w, "%s %s\n", heading("Kind:"), st.Kind)
	}
	fmt.Fprintf(w, "%s %d\n", heading("Entries:"), st.Entries)
	fmt.Fprintf(w, "%s %s\n", heading("Documents:"), strings.Join(st.Documents, ", "))
	if st.Error != "" {
		fmt.Fprintf(w, "%s %s\n", failedTag("Error:"), st.Error)
	}
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintln(w, heading(title+":"))
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
