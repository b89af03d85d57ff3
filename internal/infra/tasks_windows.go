//go:build windows

package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/domain"
)

// Task Scheduler COM constants.
const (
	taskActionExec          = 0
	taskLogonS4U            = 2
	taskLogonServiceAccount = 5
	taskFlagIncludeHidden   = 1
)

// TaskSchedulerReader walks the task tree through the Schedule.Service
// COM automation object. Unlike the registry readers this one is
// genuinely fallible: the COM connection itself can be refused.
type TaskSchedulerReader struct {
	logger *zap.Logger
}

// NewTaskSchedulerReader creates the scheduled-task reader.
func NewTaskSchedulerReader(logger *zap.Logger) *TaskSchedulerReader {
	return &TaskSchedulerReader{logger: logger}
}

func (r *TaskSchedulerReader) Name() string { return "task-scheduler" }

func (r *TaskSchedulerReader) Read(ctx context.Context) ([]domain.StartupEntry, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != uintptr(1) {
			return nil, fmt.Errorf("failed to initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Schedule.Service")
	if err != nil {
		return nil, fmt.Errorf("failed to create Schedule.Service: %w", err)
	}
	defer unknown.Release()

	service, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, fmt.Errorf("failed to query ITaskService: %w", err)
	}
	defer service.Release()

	if _, err := oleutil.CallMethod(service, "Connect"); err != nil {
		return nil, fmt.Errorf("failed to connect to Task Scheduler: %w", err)
	}

	rootVar, err := oleutil.CallMethod(service, "GetFolder", `\`)
	if err != nil {
		return nil, fmt.Errorf("failed to open task root folder: %w", err)
	}
	root := rootVar.ToIDispatch()
	defer root.Release()

	var entries []domain.StartupEntry
	r.walkFolder(root, &entries)
	return entries, nil
}

// walkFolder collects the tasks of one folder and recurses into its
// subfolders. Per-task failures are skipped; partial results stand.
func (r *TaskSchedulerReader) walkFolder(folder *ole.IDispatch, entries *[]domain.StartupEntry) {
	if tasksVar, err := oleutil.CallMethod(folder, "GetTasks", taskFlagIncludeHidden); err == nil {
		tasks := tasksVar.ToIDispatch()
		for i := 1; i <= collectionCount(tasks); i++ {
			taskVar, err := oleutil.CallMethod(tasks, "Item", i)
			if err != nil {
				continue
			}
			task := taskVar.ToIDispatch()
			if entry, ok := r.readTask(task); ok {
				*entries = append(*entries, entry)
			}
			task.Release()
		}
		tasks.Release()
	}

	if foldersVar, err := oleutil.CallMethod(folder, "GetFolders", 0); err == nil {
		folders := foldersVar.ToIDispatch()
		for i := 1; i <= collectionCount(folders); i++ {
			subVar, err := oleutil.CallMethod(folders, "Item", i)
			if err != nil {
				continue
			}
			sub := subVar.ToIDispatch()
			r.walkFolder(sub, entries)
			sub.Release()
		}
		folders.Release()
	}
}

func (r *TaskSchedulerReader) readTask(task *ole.IDispatch) (domain.StartupEntry, bool) {
	name := getStringProp(task, "Name")
	taskPath := getStringProp(task, "Path")
	if name == "" || taskPath == "" {
		return domain.StartupEntry{}, false
	}

	enabled := domain.StatusUnknown
	if v, err := oleutil.GetProperty(task, "Enabled"); err == nil {
		if on, ok := v.Value().(bool); ok {
			if on {
				enabled = domain.StatusEnabled
			} else {
				enabled = domain.StatusDisabled
			}
		}
	}

	var lastRan time.Time
	if v, err := oleutil.GetProperty(task, "LastRunTime"); err == nil {
		lastRan = taskRunTime(v.Value())
	}

	defVar, err := oleutil.GetProperty(task, "Definition")
	if err != nil {
		return domain.StartupEntry{}, false
	}
	definition := defVar.ToIDispatch()
	defer definition.Release()

	if isServiceTask(definition) {
		return domain.StartupEntry{}, false
	}

	command, ok := taskCommand(definition)
	if !ok {
		return domain.StartupEntry{}, false
	}

	entry := domain.NewStartupEntry(name, command, domain.TaskScheduler{TaskPath: taskPath})
	entry.Enabled = enabled
	entry.LastRan = lastRan
	entry.RunsAs = taskUser(definition)
	return entry, true
}

// taskUser returns the account a task runs under, domain prefix
// stripped.
func taskUser(definition *ole.IDispatch) string {
	principalVar, err := oleutil.GetProperty(definition, "Principal")
	if err != nil {
		return ""
	}
	principal := principalVar.ToIDispatch()
	defer principal.Release()
	return stripDomain(getStringProp(principal, "UserId"))
}

// isServiceTask filters out tasks that are service plumbing rather than
// user-facing autostarts: service-account/S4U logons and svchost hosts.
func isServiceTask(definition *ole.IDispatch) bool {
	if principalVar, err := oleutil.GetProperty(definition, "Principal"); err == nil {
		principal := principalVar.ToIDispatch()
		if v, err := oleutil.GetProperty(principal, "LogonType"); err == nil {
			switch v.Val {
			case taskLogonServiceAccount, taskLogonS4U:
				principal.Release()
				return true
			}
		}
		principal.Release()
	}

	if cmd, ok := taskCommand(definition); ok {
		if strings.Contains(strings.ToLower(cmd), "svchost.exe") {
			return true
		}
	}
	return false
}

// taskCommand extracts the command of the first exec action.
func taskCommand(definition *ole.IDispatch) (string, bool) {
	actionsVar, err := oleutil.GetProperty(definition, "Actions")
	if err != nil {
		return "", false
	}
	actions := actionsVar.ToIDispatch()
	defer actions.Release()

	countVar, err := oleutil.GetProperty(actions, "Count")
	if err != nil {
		return "", false
	}
	for i := 1; i <= int(countVar.Val); i++ {
		actionVar, err := oleutil.CallMethod(actions, "Item", i)
		if err != nil {
			continue
		}
		action := actionVar.ToIDispatch()

		typeVar, err := oleutil.GetProperty(action, "Type")
		if err != nil || typeVar.Val != taskActionExec {
			action.Release()
			continue
		}

		path := getStringProp(action, "Path")
		args := getStringProp(action, "Arguments")
		action.Release()

		if path == "" {
			continue
		}
		if args != "" {
			return path + " " + args, true
		}
		return path, true
	}
	return "", false
}

func collectionCount(col *ole.IDispatch) int {
	v, err := oleutil.GetProperty(col, "Count")
	if err != nil {
		return 0
	}
	return int(v.Val)
}

func getStringProp(obj *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(obj, name)
	if err != nil {
		return ""
	}
	return v.ToString()
}

// Ensure TaskSchedulerReader implements domain.SourceReader.
var _ domain.SourceReader = (*TaskSchedulerReader)(nil)
