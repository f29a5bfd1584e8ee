package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"fraudcheck/ml"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Work with the classifier artifact",
	}

	inspect := &cobra.Command{
		Use:   "inspect [path]",
		Short: "Load the artifact and print its kind, tree and node counts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runModelInspect,
	}
	inspect.Flags().Bool("json", false, "Print the summary as JSON")
	cmd.AddCommand(inspect)
	return cmd
}

func runModelInspect(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Model.Path
	}

	classifier, err := ml.LoadModel(path)
	if err != nil {
		return err
	}
	info := ml.ModelInfo{Kind: fmt.Sprintf("%T", classifier)}
	if describer, ok := classifier.(ml.Describer); ok {
		info = describer.Describe()
	}
	info.SourcePath = path

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(out, "path:       %s\n", info.SourcePath)
	fmt.Fprintf(out, "kind:       %s\n", info.Kind)
	fmt.Fprintf(out, "features:   %d\n", info.NFeatures)
	fmt.Fprintf(out, "trees:      %d\n", info.Trees)
	fmt.Fprintf(out, "nodes:      %d\n", info.Nodes)
	fmt.Fprintf(out, "max depth:  %d\n", info.MaxDepth)
	return nil
}
