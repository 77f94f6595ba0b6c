// Package mcpserver exposes the employee roster as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roach88/roster/internal/app"
	"github.com/roach88/roster/internal/roster"
)

const serverName = "roster"

// Employee is the tool view of one employee.
type Employee struct {
	UID   string `json:"uid" jsonschema:"employee id"`
	Name  string `json:"employeeName" jsonschema:"employee name"`
	Phone string `json:"phone" jsonschema:"phone number"`
	Shift string `json:"shift" jsonschema:"shift day, Monday to Sunday"`
}

func toEmployee(e roster.Employee) Employee {
	return Employee{UID: e.UID, Name: e.Name, Phone: e.Phone, Shift: string(e.Shift)}
}

// ListInput is the input of employees_list.
type ListInput struct{}

// ListResult is the output of employees_list.
type ListResult struct {
	Employees []Employee `json:"employees" jsonschema:"employees sorted by name"`
}

// CreateInput is the input of employee_create.
type CreateInput struct {
	Name  string `json:"employeeName" jsonschema:"employee name"`
	Phone string `json:"phone" jsonschema:"phone number"`
	Shift string `json:"shift,omitempty" jsonschema:"shift day, defaults to Monday"`
}

// UpdateInput is the input of employee_update. Omitted fields keep their
// stored values.
type UpdateInput struct {
	UID   string `json:"uid" jsonschema:"employee id"`
	Name  string `json:"employeeName,omitempty" jsonschema:"new employee name"`
	Phone string `json:"phone,omitempty" jsonschema:"new phone number"`
	Shift string `json:"shift,omitempty" jsonschema:"new shift day"`
}

// UIDInput names one employee.
type UIDInput struct {
	UID string `json:"uid" jsonschema:"employee id"`
}

// FireResult is the output of employee_fire.
type FireResult struct {
	UID   string `json:"uid" jsonschema:"employee id"`
	Fired bool   `json:"fired" jsonschema:"true once the employee is removed"`
}

// TextResult is the output of employee_text.
type TextResult struct {
	Phone   string `json:"phone" jsonschema:"number to text"`
	Message string `json:"message" jsonschema:"reminder text"`
	URI     string `json:"uri" jsonschema:"sms URI that opens the reminder"`
}

// ErrNotFound is returned for a uid with no employee.
var ErrNotFound = errors.New("employee not found")

// Server serves roster tools for the signed-in user.
type Server struct {
	client *app.Client
	server *mcp.Server
}

// New builds a server around client and registers every tool.
func New(client *app.Client, version string) *Server {
	s := &Server{
		client: client,
		server: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "employees_list",
		Description: "Lists the signed-in user's employees",
	}, s.list)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "employee_create",
		Description: "Adds an employee with a name, phone number, and shift day",
	}, s.create)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "employee_update",
		Description: "Changes an employee's name, phone number, or shift day",
	}, s.update)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "employee_fire",
		Description: "Removes an employee",
	}, s.fire)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "employee_text",
		Description: "Builds the shift reminder text message for an employee",
	}, s.text)

	return s
}

// Run serves on transport until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	slog.Info("mcp server starting", "name", serverName)
	if err := s.server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	slog.Info("mcp server stopped")
	return nil
}

func (s *Server) list(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListResult, error) {
	m, err := s.client.Employees(ctx)
	if err != nil {
		return nil, ListResult{}, err
	}
	out := ListResult{Employees: make([]Employee, 0, len(m))}
	for _, e := range m {
		out.Employees = append(out.Employees, toEmployee(e))
	}
	sort.Slice(out.Employees, func(i, j int) bool {
		a, b := out.Employees[i], out.Employees[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UID < b.UID
	})
	return nil, out, nil
}

func (s *Server) create(ctx context.Context, _ *mcp.CallToolRequest, in CreateInput) (*mcp.CallToolResult, Employee, error) {
	e := roster.NewEmployee()
	e.Name = in.Name
	e.Phone = in.Phone
	if in.Shift != "" {
		e.Shift = roster.ShiftDay(in.Shift)
	}
	saved, err := s.client.CreateEmployee(ctx, e)
	if err != nil {
		return nil, Employee{}, err
	}
	slog.Debug("mcp employee created", "uid", saved.UID)
	return nil, toEmployee(saved), nil
}

func (s *Server) update(ctx context.Context, _ *mcp.CallToolRequest, in UpdateInput) (*mcp.CallToolResult, Employee, error) {
	e, err := s.lookup(ctx, in.UID)
	if err != nil {
		return nil, Employee{}, err
	}
	if in.Name != "" {
		e.Name = in.Name
	}
	if in.Phone != "" {
		e.Phone = in.Phone
	}
	if in.Shift != "" {
		e.Shift = roster.ShiftDay(in.Shift)
	}
	saved, err := s.client.UpdateEmployee(ctx, e)
	if err != nil {
		return nil, Employee{}, err
	}
	return nil, toEmployee(saved), nil
}

func (s *Server) fire(ctx context.Context, _ *mcp.CallToolRequest, in UIDInput) (*mcp.CallToolResult, FireResult, error) {
	if err := s.client.FireEmployee(ctx, in.UID); err != nil {
		return nil, FireResult{}, err
	}
	return nil, FireResult{UID: in.UID, Fired: true}, nil
}

func (s *Server) text(ctx context.Context, _ *mcp.CallToolRequest, in UIDInput) (*mcp.CallToolResult, TextResult, error) {
	e, err := s.lookup(ctx, in.UID)
	if err != nil {
		return nil, TextResult{}, err
	}
	sched := roster.ScheduleText(e)
	return nil, TextResult{Phone: sched.Phone, Message: sched.Message, URI: sched.URI}, nil
}

// lookup fetches the employee uid from the current list.
func (s *Server) lookup(ctx context.Context, uid string) (roster.Employee, error) {
	if uid == "" {
		return roster.Employee{}, app.ErrMissingUID
	}
	m, err := s.client.Employees(ctx)
	if err != nil {
		return roster.Employee{}, err
	}
	e, ok := m[uid]
	if !ok {
		return roster.Employee{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	return e, nil
}
