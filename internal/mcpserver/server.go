// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the clinic collections as tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/render"
)

const dataFormatURI = "physiodesk://data-format"

// Server wraps the MCP server with the clinic tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *clinic.Service
	dates render.DateFormatter
}

// New creates a new MCP server with all clinic tools registered.
func New(svc *clinic.Service, dates render.DateFormatter, version string) *Server {
	s := &Server{svc: svc, dates: dates}

	s.mcp = server.NewMCPServer(
		"Physiodesk",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_patient",
		mcp.WithDescription("Register a patient. Name, age and condition are required."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Patient name")),
		mcp.WithString("age", mcp.Required(), mcp.Description("Age in years, an integer")),
		mcp.WithString("condition", mcp.Required(), mcp.Description("Condition being treated")),
		mcp.WithString("notes", mcp.Description("Optional notes")),
	), s.addPatient)

	s.mcp.AddTool(mcp.NewTool("add_appointment",
		mcp.WithDescription("Schedule an appointment. Patient and date are required."),
		mcp.WithString("patient", mcp.Required(), mcp.Description("Patient name (free text)")),
		mcp.WithString("date", mcp.Required(), mcp.Description("ISO 8601 date-time, e.g. 2024-05-01T10:00")),
		mcp.WithString("notes", mcp.Description("Optional notes")),
	), s.addAppointment)

	s.mcp.AddTool(mcp.NewTool("add_exercise_plan",
		mcp.WithDescription("Assign an exercise plan to a patient."),
		mcp.WithString("patient", mcp.Required(), mcp.Description("Patient name (free text)")),
		mcp.WithString("plan", mcp.Required(), mcp.Description("Plan description")),
	), s.addPlan)

	s.mcp.AddTool(mcp.NewTool("list_patients",
		mcp.WithDescription("List every patient as a table: name | age | condition | notes."),
	), s.listPatients)

	s.mcp.AddTool(mcp.NewTool("list_appointments",
		mcp.WithDescription("List every appointment as a table with formatted dates."),
	), s.listAppointments)

	s.mcp.AddTool(mcp.NewTool("list_exercise_plans",
		mcp.WithDescription("List every exercise plan as 'patient: plan'."),
	), s.listPlans)

	s.mcp.AddTool(mcp.NewTool("get_counts",
		mcp.WithDescription("Number of patients, appointments and exercise plans."),
	), s.getCounts)

	s.mcp.AddResource(
		mcp.NewResource(dataFormatURI, "Data Format",
			mcp.WithResourceDescription("How the clinic collections are stored and validated."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDataFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) addPatient(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.svc.AddPatient(ctx, clinic.PatientForm{
		Name:      req.GetString("name", ""),
		Age:       req.GetString("age", ""),
		Condition: req.GetString("condition", ""),
		Notes:     req.GetString("notes", ""),
	})
	if err != nil {
		return addError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added patient: %s", p.Name)), nil
}

func (s *Server) addAppointment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.svc.AddAppointment(ctx, clinic.AppointmentForm{
		Patient: req.GetString("patient", ""),
		Date:    req.GetString("date", ""),
		Notes:   req.GetString("notes", ""),
	})
	if err != nil {
		return addError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added appointment: %s at %s", a.Patient, s.dates.Format(a.Date))), nil
}

func (s *Server) addPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.svc.AddPlan(ctx, clinic.PlanForm{
		Patient: req.GetString("patient", ""),
		Plan:    req.GetString("plan", ""),
	})
	if err != nil {
		return addError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added exercise plan for %s", p.Patient)), nil
}

func (s *Server) listPatients(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(render.PatientTable(s.svc.Patients(ctx)).Text()), nil
}

func (s *Server) listAppointments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(render.AppointmentTable(s.svc.Appointments(ctx), s.dates).Text()), nil
}

func (s *Server) listPlans(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := render.PlanList(s.svc.Plans(ctx))
	if len(items) == 0 {
		return mcp.NewToolResultText("no exercise plans"), nil
	}
	return mcp.NewToolResultText(strings.Join(items, "\n")), nil
}

func (s *Server) getCounts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(render.CountLines(s.svc.Counts(ctx)), "\n")), nil
}

func (s *Server) readDataFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      dataFormatURI,
			MIMEType: "text/markdown",
			Text:     DataFormatContract,
		},
	}, nil
}

// addError turns a rejected submission into a tool error naming the
// offending fields.
func addError(err error) *mcp.CallToolResult {
	var verr *clinic.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return mcp.NewToolResultError(err.Error())
	}
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + verr.Fields[n]
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", verr.Error(), strings.Join(parts, "; ")))
}
