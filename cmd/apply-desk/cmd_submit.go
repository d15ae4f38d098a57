package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"apply-desk/internal/common/camunda"
	"apply-desk/internal/common/config"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/models"

	"github.com/spf13/cobra"
)

const defaultProcessID = "telecom-improvement-request"

type submitFlags struct {
	draft       models.ApplicationDraft
	viaWorkflow bool
	processID   string
}

func newSubmitCmd(c *cli) *cobra.Command {
	f := &submitFlags{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a telecom-improvement request",
		Long: `Validates and persists one request, then notifies the administrator contacts.

When PostgreSQL is unreachable the request is kept in the local ledger under a
LOCAL-YYYYMMDD-NNNN number and an operator notice is posted.

Example:
  apply-desk submit --name 홍길동 --phone 010-1234-5678 --work-type C \
    --start-date 2025-03-10 --privacy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.viaWorkflow {
				return c.startWorkflow(cmd.Context(), cmd.OutOrStdout(), f)
			}
			return c.withApp(cmd.Context(), func(a *app) error {
				res, err := a.service.Submit(cmd.Context(), f.draft)
				if err != nil {
					if se, ok := apperrors.AsStandard(err); ok {
						return errors.New(se.Message)
					}
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.draft.Name, "name", "", "requested work (공사요청)")
	flags.StringVar(&f.draft.Phone, "phone", "", "applicant contact number")
	flags.StringVar(&f.draft.WorkType, "work-type", "", "category code or label (A-D, interior, exterior, ...)")
	flags.StringVar(&f.draft.StartDate, "start-date", "", "preferred start date, YYYY-MM-DD")
	flags.StringVar(&f.draft.Description, "description", "", "free-form details")
	flags.BoolVar(&f.draft.Privacy, "privacy", false, "consent to personal data collection")
	flags.BoolVar(&f.viaWorkflow, "via-workflow", false, "start a process instance instead of submitting directly")
	flags.StringVar(&f.processID, "process-id", defaultProcessID, "BPMN process id used with --via-workflow")
	return cmd
}

// startWorkflow hands the draft to the process engine; the submit-application
// worker does the rest.
func (c *cli) startWorkflow(ctx context.Context, out io.Writer, f *submitFlags) error {
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         c.cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: c.cfg.Camunda.Plaintext,
		ConnectionTimeout:      config.GetDuration(c.cfg.Camunda.Timeout),
		RequestTimeout:         config.GetDuration(c.cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		return err
	}
	defer zeebe.Close()

	key, err := zeebe.StartProcess(ctx, f.processID, draftVariables(f.draft))
	if err != nil {
		return err
	}
	c.log.Info("process instance created", map[string]interface{}{
		"processId":          f.processID,
		"processInstanceKey": key,
	})
	return printJSON(out, map[string]interface{}{
		"processId":          f.processID,
		"processInstanceKey": key,
	})
}

func draftVariables(d models.ApplicationDraft) map[string]interface{} {
	return map[string]interface{}{
		"name":        d.Name,
		"phone":       d.Phone,
		"workType":    d.WorkType,
		"startDate":   d.StartDate,
		"description": d.Description,
		"privacy":     d.Privacy,
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
