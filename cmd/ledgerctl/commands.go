package main

import (
	"context"
	"fmt"
	"strings"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func (o *globalOptions) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), o.json, o.cfg.Ledger.BaseCurrency)
}

func newPostCmd(opts *globalOptions) *cobra.Command {
	var documentID, userID string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a PENDING document into a balanced journal",
		Long: `Post a PENDING credit note, debit note or expense.

The journal, the inventory movements of inventory-enabled lines and the OPEN
status with the full total due commit together. Expenses paid in cash or by
bank are settled in the same transaction.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := requiredUUID("document", documentID)
			if err != nil {
				return err
			}
			user, err := requiredUUID("user", userID)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.postingService().Post(ctx, appledger.PostCommand{DocumentID: doc, UserID: user})
				if err != nil {
					return err
				}
				return opts.printer(cmd).posted(result)
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "document ID")
	cmd.Flags().StringVar(&userID, "user", "", "acting user ID")
	return cmd
}

func newReverseCmd(opts *globalOptions) *cobra.Command {
	var refType, refID, userID string
	cmd := &cobra.Command{
		Use:   "reverse",
		Short: "Reverse the live journal of a document",
		Long: `Reverse every unreversed journal of a reference with a mirror journal.

Posting references (CREDIT_NOTE, DEBIT_NOTE, EXPENSE) reset the document to
PENDING. Stock is left as posted; run reverse-inventory before posting the
document again. A document with settlements must have them reversed first.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(refType) == "" {
				return usageError(fmt.Errorf("--type is required"))
			}
			ref, err := requiredUUID("ref", refID)
			if err != nil {
				return err
			}
			user, err := requiredUUID("user", userID)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.postingService().Reverse(ctx, appledger.ReverseCommand{
					ReferenceType: strings.ToUpper(strings.TrimSpace(refType)),
					ReferenceID:   ref,
					UserID:        user,
				})
				if err != nil {
					return err
				}
				return opts.printer(cmd).reversed(result)
			})
		},
	}
	cmd.Flags().StringVar(&refType, "type", "", "reference type: CREDIT_NOTE, DEBIT_NOTE or EXPENSE")
	cmd.Flags().StringVar(&refID, "ref", "", "reference (document) ID")
	cmd.Flags().StringVar(&userID, "user", "", "acting user ID")
	return cmd
}

func newSettleCmd(opts *globalOptions) *cobra.Command {
	var documentID, amount, depositID, userID, description string
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Apply a payment or refund against a posted document",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := requiredUUID("document", documentID)
			if err != nil {
				return err
			}
			value, err := requiredDecimal("amount", amount)
			if err != nil {
				return err
			}
			deposit, err := requiredUUID("deposit", depositID)
			if err != nil {
				return err
			}
			user, err := requiredUUID("user", userID)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.settlementService().Settle(ctx, appledger.SettleCommand{
					DocumentID:        doc,
					Amount:            value,
					DepositCategoryID: deposit,
					UserID:            user,
					Description:       description,
				})
				if err != nil {
					return err
				}
				return opts.printer(cmd).settled(result)
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "document ID")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in document currency")
	cmd.Flags().StringVar(&depositID, "deposit", "", "bank or cash category ID the money moves through")
	cmd.Flags().StringVar(&userID, "user", "", "acting user ID")
	cmd.Flags().StringVar(&description, "description", "", "settlement memo")
	return cmd
}

func newReverseInventoryCmd(opts *globalOptions) *cobra.Command {
	var documentID, userID string
	cmd := &cobra.Command{
		Use:   "reverse-inventory",
		Short: "Undo the stock movement of a document without touching its journal",
		Long: `Undo the stock movement applied when a document was posted. Each posting's
movement is undone at most once; a document that was never posted, or whose
movement is already reversed, is rejected.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := requiredUUID("document", documentID)
			if err != nil {
				return err
			}
			user, err := requiredUUID("user", userID)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.inventoryService().ReverseMovement(ctx, appledger.ReverseInventoryCommand{DocumentID: doc, UserID: user})
				if err != nil {
					return err
				}
				return opts.printer(cmd).movement(result)
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "document ID")
	cmd.Flags().StringVar(&userID, "user", "", "acting user ID")
	return cmd
}

func newTrialBalanceCmd(opts *globalOptions) *cobra.Command {
	var from, to string
	var strict bool
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Sum journal lines per category and report discrepancies",
		Long: `Sum the debits and credits of every category over an optional date window
and report unbalanced journals and documents whose due amount disagrees with
their status. With --strict, critical discrepancies fail the command.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := optionalDate("from", from, false)
			if err != nil {
				return err
			}
			toDate, err := optionalDate("to", to, true)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.trialBalanceService().Execute(ctx, appledger.TrialBalanceQuery{From: fromDate, To: toDate})
				if err != nil {
					return err
				}
				if err := opts.printer(cmd).trialBalance(result); err != nil {
					return err
				}
				if strict && result.CriticalCount > 0 {
					return errTrialBalanceUnbalanced(result.CriticalCount)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first journal date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last journal date, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when critical discrepancies are found")
	return cmd
}

func errTrialBalanceUnbalanced(critical int) error {
	return ledger.ErrUnbalancedJournal.WithMessage(fmt.Sprintf("Trial balance has %d critical discrepancies", critical))
}
