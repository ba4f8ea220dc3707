package main

import (
	"errors"
	"fmt"

	"sales_pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errTransitionRejected = errors.New("transition rejected")

var (
	validateFrom      string
	validateTo        string
	validatePhone     string
	validateEmail     string
	validateOfferSent bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Dry-run a stage transition for a hypothetical lead",
	Example: `  pipelinectl validate --from needs_analysis --to offer_sent --offer-sent
  pipelinectl validate --from negotiation --to contract_signed --phone +31612345678 --email a@b.nl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, mem, err := loadEngine()
		if err != nil {
			return fmt.Errorf("invalid pipeline definition: %w", err)
		}

		lead := domain.Lead{
			ID:    uuid.New(),
			Stage: validateFrom,
			Phone: validatePhone,
			Email: validateEmail,
		}
		mem.PutLead(lead)
		if validateOfferSent {
			mem.PutMessage(lead.ID, domain.MessageTypeOfferSent, domain.MessageStatusSent)
		}

		result, err := eng.Validator.ValidateStageTransition(cmd.Context(), lead, validateFrom, validateTo, uuid.Nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := printJSON(out, map[string]any{
				"fromStage": validateFrom,
				"toStage":   validateTo,
				"isValid":   result.IsValid,
				"errors":    result.Errors,
			}); err != nil {
				return err
			}
		} else if result.IsValid {
			fmt.Fprintf(out, "%s -> %s: allowed\n", validateFrom, validateTo)
		} else {
			fmt.Fprintf(out, "%s -> %s: rejected\n", validateFrom, validateTo)
			for _, msg := range result.Errors {
				fmt.Fprintf(out, "  - %s\n", msg)
			}
		}

		if !result.IsValid {
			return errTransitionRejected
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFrom, "from", "", "current stage of the lead")
	validateCmd.Flags().StringVar(&validateTo, "to", "", "target stage")
	validateCmd.Flags().StringVar(&validatePhone, "phone", "", "lead phone number")
	validateCmd.Flags().StringVar(&validateEmail, "email", "", "lead email address")
	validateCmd.Flags().BoolVar(&validateOfferSent, "offer-sent", false, "the lead has a sent offer message")
	_ = validateCmd.MarkFlagRequired("from")
	_ = validateCmd.MarkFlagRequired("to")
}
