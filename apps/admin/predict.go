package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trezcool/eduadmin/core/academic"
)

func (cli *commandLine) predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict STUDENT_ID",
		Short: "Forecast a student's performance and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cli.sync(cmd.Context()); err != nil {
				return err
			}
			res, err := cli.forecasts.Run(cmd.Context(), academic.ID(args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintf(cli.out, "Student %s\n", keyColor.Sprint(res.StudentID))
			fmt.Fprintf(cli.out, "  Predicted GPA: %.2f\n", res.PredictedGPA)
			fmt.Fprintf(cli.out, "  Risk level:    %s\n", riskColor(res.RiskLevel).Sprint(res.RiskLevel))
			fmt.Fprintf(cli.out, "  Trend:         %s\n", res.PerformanceTrend)
			fmt.Fprintf(cli.out, "  Confidence:    %d%%\n", res.ConfidenceScore)
			if len(res.RiskFactors) > 0 {
				fmt.Fprintf(cli.out, "  Risk factors:  %s\n", strings.Join(res.RiskFactors, "; "))
			}
			fmt.Fprintf(cli.out, "  Recommendation: %s\n", res.Recommendation)
			return nil
		},
	}
}

func riskColor(level string) *color.Color {
	switch level {
	case "High":
		return errColor
	case "Medium":
		return warnColor
	default:
		return okColor
	}
}
