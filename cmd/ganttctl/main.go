package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"gantt-tracker/internal/config"
	"gantt-tracker/internal/logging"
	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
	"gantt-tracker/internal/service"
)

var Version = "dev"

// operator is the local user of the CLI; it has full rights.
var operator = service.Actor{Name: "ganttctl", Role: model.RoleAdmin}

type app struct {
	project string
	output  string

	log       *logrus.Logger
	master    *gorm.DB
	projects  *service.ProjectService
	tasks     *service.TaskService
	members   *service.MemberService
	resources *service.ResourceService
	views     *service.ViewService
}

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "ganttctl",
		Short:         "Manage gantt tracker projects from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}
	root.PersistentFlags().StringVarP(&a.project, "project", "p", os.Getenv("GANTT_PROJECT"), "project to work in")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or yaml")

	root.AddCommand(projectCmd(a))
	root.AddCommand(taskCmd(a))
	root.AddCommand(ganttCmd(a))
	root.AddCommand(burndownCmd(a))
	root.AddCommand(overviewCmd(a))
	root.AddCommand(treeCmd(a))
	root.AddCommand(memberCmd(a))
	root.AddCommand(resourceCmd(a))
	root.AddCommand(exportCmd(a))
	return root, a
}

func (a *app) open() error {
	if a.output != "text" && a.output != "yaml" {
		return fmt.Errorf("unknown output %q, use text or yaml", a.output)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.log = logging.New(cfg.LogLevel, cfg.LogFormat)

	a.master, err = repository.NewMasterDB(cfg.MasterDatabaseURL, a.log)
	if err != nil {
		return fmt.Errorf("master db: %w", err)
	}
	a.projects = service.NewProjectService(repository.NewProjectRepository(a.master), cfg.ProjectsDir, a.log)
	a.tasks = service.NewTaskService(service.TaskOptionsFromConfig(cfg), a.log, nil)
	a.members = service.NewMemberService(a.log)
	a.resources = service.NewResourceService(a.log)
	a.views = service.NewViewService(nil)
	return nil
}

func (a *app) close() {
	if a.projects != nil {
		if err := a.projects.Close(); err != nil {
			a.log.WithError(err).Warn("close project stores")
		}
	}
	if a.master != nil {
		_ = repository.Close(a.master)
	}
}

func (a *app) scope(ctx context.Context) (service.Scope, error) {
	if a.project == "" {
		return service.Scope{}, errors.New("no project given, use --project or GANTT_PROJECT")
	}
	return a.projects.Scope(ctx, operator, a.project)
}

// print writes v as YAML when requested, otherwise calls text.
func (a *app) print(w io.Writer, v any, text func(w io.Writer)) error {
	if a.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	text(w)
	return nil
}
