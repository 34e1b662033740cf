package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "agent", Short: "root"}
	token := &cobra.Command{Use: "token", Short: "token commands"}
	report := &cobra.Command{Use: "report", Short: "token report"}
	report.Flags().String("token", "", "Token symbol or address")
	_ = report.MarkFlagRequired("token")
	report.Flags().Int("limit", 10, "Result limit")
	token.AddCommand(report)
	root.AddCommand(token)
	return root
}

func TestDescribeWholeTree(t *testing.T) {
	got, err := Describe(testTree(), "")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if got.Path != "agent" {
		t.Fatalf("path = %s", got.Path)
	}
	if len(got.Subcommands) != 1 || got.Subcommands[0].Use != "token" {
		t.Fatalf("unexpected subcommands: %+v", got.Subcommands)
	}
}

func TestDescribeSubcommandPath(t *testing.T) {
	got, err := Describe(testTree(), "token report")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if got.Path != "agent token report" {
		t.Fatalf("path = %s", got.Path)
	}

	var tokenFlag *Flag
	for i := range got.Flags {
		if got.Flags[i].Name == "token" {
			tokenFlag = &got.Flags[i]
		}
	}
	if tokenFlag == nil {
		t.Fatal("missing token flag")
	}
	if !tokenFlag.Required {
		t.Fatal("token flag should be marked required")
	}
}

func TestDescribeUnknownPath(t *testing.T) {
	if _, err := Describe(testTree(), "token nope"); err == nil {
		t.Fatal("expected error for unknown command path")
	}
}
