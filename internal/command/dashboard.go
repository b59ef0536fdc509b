package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"riskdash/internal/analytics"
	"riskdash/internal/filter"
	"riskdash/internal/services"
)

// queryFlags are the panel parameters shared by the dashboard commands.
type queryFlags struct {
	year    string
	rng     string
	amount  string
	flag    string
	variant string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.year, "year", "y", "All", `Transaction year, or "All"`)
	cmd.Flags().StringVarP(&f.rng, "range", "r", "", `Age panel year range, e.g. "2019-2023"`)
	cmd.Flags().StringVar(&f.amount, "amount", "", "Column summed by the monthly panel")
	cmd.Flags().StringVar(&f.flag, "flag", "", "Binary column of the risk panel")
	cmd.Flags().StringVar(&f.variant, "variant", "", `Age variant: "affiliation" or "transaction"`)
}

func (f *queryFlags) query() (services.Query, error) {
	q := services.Query{
		AmountField: strings.TrimSpace(f.amount),
		FlagField:   strings.TrimSpace(f.flag),
		AgeVariant:  strings.ToLower(strings.TrimSpace(f.variant)),
	}
	sel, err := filter.ParseSelector(f.year)
	if err != nil {
		return services.Query{}, err
	}
	q.Year = sel
	if v := strings.TrimSpace(f.rng); v != "" {
		r, err := filter.ParseRange(v)
		if err != nil {
			return services.Query{}, err
		}
		q.Range = &r
	}
	return q, nil
}

func (a *App) summaryCmd() *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print every dashboard panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			svc, _, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.Dashboard(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.con.Summary(d)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func (a *App) yearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List the transaction years and the affiliation range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := svc.Years(cmd.Context(), "")
			if err != nil {
				return err
			}
			a.con.Years(opts)
			return nil
		},
	}
}

func (a *App) monthlyCmd() *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Print the monthly amounts with quarterly averages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			svc, _, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Monthly(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.con.Monthly(s)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func (a *App) riskCmd() *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Print the monthly risk class counts and risk percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			svc, _, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Risk(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.con.Risk(s)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func (a *App) ageCmd() *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "age",
		Short: "Print distinct accounts per account age bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			svc, _, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Age(cmd.Context(), q)
			if err != nil {
				return err
			}
			a.con.Age(s)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func (a *App) profileCmd() *cobra.Command {
	var (
		risks      []string
		delinquent string
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the risk profile of the filtered loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := profileFilter(risks, delinquent, categories)
			if err != nil {
				return err
			}
			svc, _, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			p, _, err := svc.Profile(cmd.Context(), "", f)
			if err != nil {
				return err
			}
			a.con.Profile(p)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&risks, "risk", nil, "Risk levels to include (comma-separated)")
	cmd.Flags().StringVar(&delinquent, "ever-delinquent", "all", "all, true or false")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Purchase categories to include (comma-separated)")
	return cmd
}

func profileFilter(risks []string, delinquent string, categories []string) (analytics.ProfileFilter, error) {
	var f analytics.ProfileFilter
	for _, v := range risks {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return analytics.ProfileFilter{}, fmt.Errorf("invalid risk level %q", v)
		}
		f.RiskLevels = append(f.RiskLevels, n)
	}
	switch v := strings.ToLower(strings.TrimSpace(delinquent)); v {
	case "", "all":
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return analytics.ProfileFilter{}, fmt.Errorf("invalid ever-delinquent value %q: want all, true or false", delinquent)
		}
		f.EverDelinquent = &b
	}
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}
	return f, nil
}

func (a *App) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Print the evaluation metrics of the default prediction models",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.con.Models(analytics.ModelReports())
		},
	}
}
