package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/website-audit/internal/audit"
	"github.com/JakeFAU/website-audit/internal/render"
)

func newAuditCmd() *cobra.Command {
	var (
		req    audit.Request
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit one website and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFrom(cmd)
			if err != nil {
				return err
			}
			req.WebsiteURL = args[0]
			result, err := rt.app.Auditor().RunAudit(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("audit %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"id":           result.ID,
					"status":       result.Status,
					"overallScore": result.Report.OverallScore,
					"auditResults": result.Report,
				}); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				return nil
			}
			return render.Report(out, result.ID, result.Report)
		},
	}
	cmd.Flags().StringVar(&req.SocialURL, "social", "", "social profile URL to include in the analysis")
	cmd.Flags().StringVar(&req.Email, "email", "", "contact email stored with the audit")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
