package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/app"
	"github.com/roach88/roster/internal/roster"
)

var errNotFound = errors.New("employee not found")

// employeeList renders employees sorted by name, then uid.
type employeeList []roster.Employee

func newEmployeeList(m map[string]roster.Employee) employeeList {
	list := make(employeeList, 0, len(m))
	for _, e := range m {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].UID < list[j].UID
	})
	return list
}

func (l employeeList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No employees.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tNAME\tPHONE\tSHIFT")
	for _, e := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.UID, e.Name, e.Phone, e.Shift)
	}
	return tw.Flush()
}

// employeeView renders one saved employee.
type employeeView struct {
	roster.Employee
}

func (v employeeView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Saved %s (uid %s): %s, %s\n", v.Name, v.UID, v.Phone, v.Shift)
	return err
}

// scheduleView renders a shift reminder.
type scheduleView struct {
	roster.Schedule
}

func (v scheduleView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "To:      %s\nMessage: %s\nOpen:    %s\n", v.Phone, v.Message, v.URI)
	return err
}

// EmployeeFlags holds the employee fields shared by create and update.
type EmployeeFlags struct {
	Name  string
	Phone string
	Shift string
}

func (f *EmployeeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Name, "name", "", "employee name")
	cmd.Flags().StringVar(&f.Phone, "phone", "", "employee phone number")
	cmd.Flags().StringVar(&f.Shift, "shift", string(roster.Monday), "shift day (Monday..Sunday)")
}

// apply copies the flags set on cmd onto e.
func (f *EmployeeFlags) apply(cmd *cobra.Command, e roster.Employee) roster.Employee {
	if cmd.Flags().Changed("name") {
		e.Name = f.Name
	}
	if cmd.Flags().Changed("phone") {
		e.Phone = f.Phone
	}
	if cmd.Flags().Changed("shift") {
		e.Shift = roster.ShiftDay(f.Shift)
	}
	return e
}

// NewEmployeesCommand creates the employees command group.
func NewEmployeesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"employee", "emp"},
		Short:   "List, create, update, and fire employees",
	}

	cmd.AddCommand(newEmployeesListCommand(rootOpts))
	cmd.AddCommand(newEmployeesCreateCommand(rootOpts))
	cmd.AddCommand(newEmployeesUpdateCommand(rootOpts))
	cmd.AddCommand(newEmployeesFireCommand(rootOpts))
	cmd.AddCommand(newEmployeesTextCommand(rootOpts))

	return cmd
}

// withClient opens the app, runs fn with its client, and reports fn's error.
func withClient(opts *RootOptions, cmd *cobra.Command, fn func(*app.Client, *OutputFormatter) error) error {
	f := opts.formatter(cmd)
	a, err := opts.openApp(commandContext(cmd), f)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a.Client(), f); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return f.Fail(err)
	}
	return nil
}

// lookup fetches the employee uid from the current list.
func lookup(cmd *cobra.Command, c *app.Client, uid string) (roster.Employee, error) {
	list, err := c.Employees(commandContext(cmd))
	if err != nil {
		return roster.Employee{}, err
	}
	e, ok := list[uid]
	if !ok {
		return roster.Employee{}, fmt.Errorf("%w: %s", errNotFound, uid)
	}
	return e, nil
}

func newEmployeesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the signed-in user's employees",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				list, err := c.Employees(commandContext(cmd))
				if err != nil {
					return err
				}
				f.VerboseLog("Fetched %d employee(s)", len(list))
				return f.Success(newEmployeeList(list))
			})
		},
	}
}

func newEmployeesCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var fields EmployeeFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an employee",
		Long: `Add an employee to the signed-in user's roster. The shift defaults to
Monday.

Example:
  roster employees create --name Taylor --phone 555-0100 --shift Friday`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				e := fields.apply(cmd, roster.NewEmployee())
				saved, err := c.CreateEmployee(commandContext(cmd), e)
				if err != nil {
					return err
				}
				return f.Success(employeeView{saved})
			})
		},
	}
	fields.register(cmd)

	return cmd
}

func newEmployeesUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var fields EmployeeFlags

	cmd := &cobra.Command{
		Use:   "update <uid>",
		Short: "Change an employee's name, phone, or shift",
		Long: `Change an employee. Only the flags given are changed; the other fields
keep their stored values.

Example:
  roster employees update e1 --shift Sunday`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				current, err := lookup(cmd, c, args[0])
				if err != nil {
					return err
				}
				saved, err := c.UpdateEmployee(commandContext(cmd), fields.apply(cmd, current))
				if err != nil {
					return err
				}
				return f.Success(employeeView{saved})
			})
		},
	}
	fields.register(cmd)

	return cmd
}

func newEmployeesFireCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "fire <uid>",
		Short:         "Remove an employee",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				if err := c.FireEmployee(commandContext(cmd), args[0]); err != nil {
					return err
				}
				return f.Success(fmt.Sprintf("Fired %s", args[0]))
			})
		},
	}
}

func newEmployeesTextCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "text <uid>",
		Short:         "Show the shift reminder text for an employee",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				e, err := lookup(cmd, c, args[0])
				if err != nil {
					return err
				}
				return f.Success(scheduleView{roster.ScheduleText(e)})
			})
		},
	}
}
