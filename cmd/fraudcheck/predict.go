package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fraudcheck/fraud"
	"fraudcheck/ml"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Score one transaction and print the verdict",
		Example: `  fraudcheck predict --type TRANSFER --amount 5000 --old-balance 10000 --new-balance 5000`,
		RunE:    runPredict,
	}
	cmd.Flags().String("type", "", "Transaction type (CASH_OUT, PAYMENT, CASH_IN, TRANSFER, DEBIT)")
	cmd.Flags().Float64("amount", 0, "Transaction amount")
	cmd.Flags().Float64("old-balance", 0, "Originator balance before the transaction")
	cmd.Flags().Float64("new-balance", 0, "Originator balance after the transaction")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	label, _ := cmd.Flags().GetString("type")
	typ, err := ml.ParseTransactionType(label)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetFloat64("amount")
	oldBalance, _ := cmd.Flags().GetFloat64("old-balance")
	newBalance, _ := cmd.Flags().GetFloat64("new-balance")

	detector := fraud.Load(cfg.Model.Path)
	if err := detector.LoadError(); err != nil {
		return err
	}

	outcome, err := detector.Check(cmd.Context(), fraud.Submission{
		Type:       typ,
		Amount:     amount,
		OldBalance: oldBalance,
		NewBalance: newBalance,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "features: %v\n", outcome.Vector.Values())
	if !outcome.OK() {
		return fmt.Errorf("%s", outcome.Message())
	}
	fmt.Fprintln(out, outcome.Message())
	if detail := outcome.Verdict.Detail(); detail != "" {
		fmt.Fprintln(out, detail)
	}
	return nil
}
